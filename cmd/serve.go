package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/venuehub/ms-go-booking/app/cache"
	"github.com/venuehub/ms-go-booking/app/controller"
	"github.com/venuehub/ms-go-booking/app/gateway"
	"github.com/venuehub/ms-go-booking/app/repository"
	"github.com/venuehub/ms-go-booking/app/service"
	"github.com/venuehub/ms-go-booking/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the booking payments service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService, cfg.App.ServiceName)
	gatewayController := controller.NewGatewayController(paymentService)

	e := setupHTTPServer(paymentController, gatewayController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	gatewayController *controller.GatewayController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(ensureRequestID())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	payments.POST("", paymentController.CreatePayment)
	payments.GET("/:id", paymentController.GetPayment)
	payments.GET("/user/:userId", paymentController.ListUserPayments)
	payments.GET("/user/:userId/status/:status", paymentController.ListUserPayments)

	gw := e.Group("/gateway")
	gw.POST("/pay/:paymentId", gatewayController.InitiateGatewayPayment)
	gw.GET("/status/:paymentId", gatewayController.QueryGatewayStatus)
	gw.POST("/notify", gatewayController.HandleGatewayNotification)

	return e
}

// ensureRequestID assigns a request id when the caller did not send one.
// The gateway posts notifications without the header, so unlike service to
// service traffic the id cannot be required.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	gatewayClient, err := gateway.NewClient(gateway.Config{
		GatewayURL:       cfg.Gateway.GatewayURL,
		AppID:            cfg.Gateway.AppID,
		PrivateKey:       cfg.Gateway.PrivateKey,
		GatewayPublicKey: cfg.Gateway.GatewayPublicKey,
		NotifyURL:        cfg.Gateway.NotifyURL,
		OrderSubject:     cfg.Gateway.OrderSubject,
		HTTPTimeout:      cfg.Gateway.HTTPTimeout,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize gateway client")
	}

	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	notificationRepo := repository.NewGatewayNotificationRepository(db)
	txRunner := repository.NewTxRunner(db)
	paymentCache := cache.NewPaymentCache(redisClient, cfg.Redis.TTL)

	paymentService := service.NewPaymentService(
		paymentRepo,
		userRepo,
		eventRepo,
		notificationRepo,
		gatewayClient,
		txRunner,
		paymentCache,
		cfg.Payments,
	)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
