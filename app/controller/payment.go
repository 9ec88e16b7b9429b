package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehub/ms-go-booking/app/factory"
	"github.com/venuehub/ms-go-booking/app/mapper"
	"github.com/venuehub/ms-go-booking/app/service"
	"github.com/venuehub/ms-go-booking/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	serviceName    string
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, serviceName string) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		serviceName:    serviceName,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok", Service: c.serviceName})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreatePayment(ctx.Request().Context(), req.UserID, req.Method, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientBalance):
			// The declined payment is persisted as failed; report it so the
			// caller can show the record alongside the rejection.
			return ctx.JSON(http.StatusBadRequest, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return c.writeError(ctx, http.StatusNotFound, "user not found")
		default:
			c.logger.WithError(err).Error("Create payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		c.logger.WithError(err).Error("Get payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ListUserPayments(ctx echo.Context) error {
	req, err := types.NewListUserPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if req.Status == "" {
		list, err := c.paymentService.ListUserPayments(ctx.Request().Context(), req.UserID)
		if err != nil {
			c.logger.WithError(err).Error("List user payments failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
		return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(list)})
	}

	list, err := c.paymentService.ListUserPaymentsByStatus(ctx.Request().Context(), req.UserID, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		c.logger.WithError(err).Error("List user payments by status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(list)})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
