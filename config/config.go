package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type LogConfig struct {
	Level string
}

type GatewayConfig struct {
	GatewayURL       string
	AppID            string
	PrivateKey       string
	GatewayPublicKey string
	NotifyURL        string
	OrderSubject     string
	HTTPTimeout      time.Duration
}

type PaymentsConfig struct {
	QueryMaxAttempts    int
	QueryRetryDelay     time.Duration
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "booking-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			TTL:      getMinutesEnv("REDIS_TTL_MINUTES", 10*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gateway: GatewayConfig{
			GatewayURL:       getEnv("GATEWAY_URL", "https://openapi.alipay.com/gateway.do"),
			AppID:            getEnv("GATEWAY_APP_ID", ""),
			PrivateKey:       getEnv("GATEWAY_PRIVATE_KEY", ""),
			GatewayPublicKey: getEnv("GATEWAY_PUBLIC_KEY", ""),
			NotifyURL:        getEnv("GATEWAY_NOTIFY_URL", ""),
			OrderSubject:     getEnv("GATEWAY_ORDER_SUBJECT", "Venue booking"),
			HTTPTimeout:      getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			QueryMaxAttempts:    getIntEnv("PAYMENTS_QUERY_MAX_ATTEMPTS", 5),
			QueryRetryDelay:     getSecondsEnv("PAYMENTS_QUERY_RETRY_DELAY_SECONDS", time.Second),
			PendingTimeout:      getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 30*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
