package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehub/ms-go-booking/app/factory"
	"github.com/venuehub/ms-go-booking/app/service"
	"github.com/venuehub/ms-go-booking/app/types"
)

const (
	ackSuccess = "success"
	ackFail    = "fail"
)

type GatewayController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewGatewayController(paymentService *service.PaymentService) *GatewayController {
	return &GatewayController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("gateway-controller"),
	}
}

func (c *GatewayController) InitiateGatewayPayment(ctx echo.Context) error {
	req, err := types.NewGatewayPayRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.InitiateGatewayPayment(ctx.Request().Context(), req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotSettleable):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrGatewayUnavailable):
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			c.logger.WithError(err).Error("Initiate gateway payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.GatewayOrderResponse{
		PaymentID:   req.PaymentID,
		ScanCode:    result.ScanCode,
		MerchantRef: result.MerchantRef,
	})
}

func (c *GatewayController) QueryGatewayStatus(ctx echo.Context) error {
	req, err := types.NewGatewayStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.QueryPaymentStatus(ctx.Request().Context(), req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSettlementConflict):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrGatewayUnavailable):
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			c.logger.WithError(err).Error("Query gateway status failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentStatusResponse{
		PaymentID:     req.PaymentID,
		PaymentStatus: result.PaymentStatus,
		TradeStatus:   result.TradeStatus,
		Amount:        result.Amount.StringFixed(2),
		MerchantRef:   result.MerchantRef,
	})
}

// HandleGatewayNotification answers the gateway's async push. The response
// body is a bare token: anything other than "success" makes the provider
// retry, so only verification failures, unknown payments, and internal
// errors are answered with "fail". A settlement conflict is acknowledged;
// the stored outcome already won and a retry cannot change it.
func (c *GatewayController) HandleGatewayNotification(ctx echo.Context) error {
	values, err := ctx.FormParams()
	if err != nil {
		return ctx.String(http.StatusOK, ackFail)
	}

	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}

	if err := c.paymentService.HandleGatewayNotification(ctx.Request().Context(), params); err != nil {
		if errors.Is(err, service.ErrSettlementConflict) {
			c.logger.WithError(err).Error("Gateway notification conflicted with settled payment")
			return ctx.String(http.StatusOK, ackSuccess)
		}
		c.logger.WithError(err).Warn("Gateway notification rejected")
		return ctx.String(http.StatusOK, ackFail)
	}

	return ctx.String(http.StatusOK, ackSuccess)
}

func (c *GatewayController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
