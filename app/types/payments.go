package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/venuehub/ms-go-booking/app/entity"
)

type CreatePaymentRequest struct {
	UserID uint64          `json:"user_id"`
	Method string          `json:"payment_method"`
	Amount decimal.Decimal `json:"amount"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Method = strings.ToLower(strings.TrimSpace(body.Method))
	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if !entity.ValidMethod(r.Method) {
		return errors.New("payment_method must be balance or gateway")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	return nil
}

type GetPaymentRequest struct {
	ID uint64
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPaymentRequest{ID: id}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

type ListUserPaymentsRequest struct {
	UserID uint64
	Status string
}

func NewListUserPaymentsRequestFromContext(ctx echo.Context) (*ListUserPaymentsRequest, error) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &ListUserPaymentsRequest{
		UserID: userID,
		Status: strings.ToLower(strings.TrimSpace(ctx.Param("status"))),
	}, nil
}

func (r *ListUserPaymentsRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("invalid user id")
	}
	if r.Status != "" && !entity.ValidStatus(r.Status) {
		return errors.New("status must be pending, successful, or failed")
	}
	return nil
}

type GatewayPayRequest struct {
	PaymentID uint64
}

func NewGatewayPayRequestFromContext(ctx echo.Context) (*GatewayPayRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("paymentId"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GatewayPayRequest{PaymentID: id}, nil
}

func (r *GatewayPayRequest) Validate() error {
	if r.PaymentID == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

type GatewayStatusRequest struct {
	PaymentID uint64
}

func NewGatewayStatusRequestFromContext(ctx echo.Context) (*GatewayStatusRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("paymentId"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GatewayStatusRequest{PaymentID: id}, nil
}

func (r *GatewayStatusRequest) Validate() error {
	if r.PaymentID == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

type Payment struct {
	ID          uint64  `json:"id"`
	UserID      uint64  `json:"user_id"`
	Method      string  `json:"payment_method"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	MerchantRef *string `json:"merchant_ref,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type GatewayOrderResponse struct {
	PaymentID   uint64 `json:"payment_id"`
	ScanCode    string `json:"scan_code"`
	MerchantRef string `json:"merchant_ref"`
}

type PaymentStatusResponse struct {
	PaymentID     uint64 `json:"payment_id"`
	PaymentStatus string `json:"payment_status"`
	TradeStatus   string `json:"trade_status"`
	Amount        string `json:"amount"`
	MerchantRef   string `json:"merchant_ref"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
