package types

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func TestNewCreatePaymentRequestFromContextNormalizesMethod(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/payments", bytes.NewBufferString(`{"user_id":7,"payment_method":" Balance ","amount":"30.00"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Method != "balance" {
		t.Fatalf("expected normalized method, got %q", parsed.Method)
	}
	if !parsed.Amount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("unexpected amount %s", parsed.Amount)
	}
}

func TestCreatePaymentValidate(t *testing.T) {
	req := &CreatePaymentRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected user_id validation error")
	}

	req = &CreatePaymentRequest{UserID: 7, Method: "card", Amount: decimal.RequireFromString("30.00")}
	if err := req.Validate(); err == nil {
		t.Fatal("expected payment_method validation error")
	}

	req = &CreatePaymentRequest{UserID: 7, Method: "gateway", Amount: decimal.Zero}
	if err := req.Validate(); err == nil {
		t.Fatal("expected amount validation error")
	}

	req = &CreatePaymentRequest{UserID: 7, Method: "gateway", Amount: decimal.RequireFromString("30.00")}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewGetPaymentRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/payments/9", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("9")

	parsed, err := NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.ID != 9 {
		t.Fatalf("unexpected id %d", parsed.ID)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewGetPaymentRequestFromContextRejectsGarbage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/payments/abc", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")

	if _, err := NewGetPaymentRequestFromContext(ctx); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestListUserPaymentsRequestValidate(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/payments/user/7/status/PENDING", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("userId", "status")
	ctx.SetParamValues("7", "PENDING")

	parsed, err := NewListUserPaymentsRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Status != "pending" {
		t.Fatalf("expected lower-cased status, got %q", parsed.Status)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Status = "paid"
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected status validation error")
	}

	parsed.UserID = 0
	parsed.Status = ""
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected user id validation error")
	}
}

func TestGatewayPayRequestValidate(t *testing.T) {
	if err := (&GatewayPayRequest{}).Validate(); err == nil {
		t.Fatal("expected payment id validation error")
	}
	if err := (&GatewayPayRequest{PaymentID: 3}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
