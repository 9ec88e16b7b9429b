package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/gateway"
)

func TestQueryPaymentStatusSettlesOnTerminalTrade(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.gateway.queryResult = &gateway.QueryResult{
		TradeStatus: gateway.TradeSuccess,
		TradeNo:     "2026083122001",
		MerchantRef: *payment.MerchantRef,
		Amount:      payment.Amount,
	}

	result, err := f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.PaymentStatus != entity.StatusSuccessful {
		t.Fatalf("expected successful, got %s", result.PaymentStatus)
	}
	if result.TradeStatus != gateway.TradeSuccess {
		t.Fatalf("expected %s, got %s", gateway.TradeSuccess, result.TradeStatus)
	}
	if f.userRepo.creditCalls != 1 {
		t.Fatalf("expected one credit, got %d", f.userRepo.creditCalls)
	}
	if f.gateway.calls() != 1 {
		t.Fatalf("expected one gateway call, got %d", f.gateway.calls())
	}
}

func TestQueryPaymentStatusTradeNotFoundReportsPendingWithoutRetry(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.gateway.queryErr = gateway.ErrTradeNotFound

	result, err := f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.PaymentStatus != entity.StatusPending {
		t.Fatalf("expected pending, got %s", result.PaymentStatus)
	}
	if result.TradeStatus != gateway.TradeWaitBuyerPay {
		t.Fatalf("expected %s, got %s", gateway.TradeWaitBuyerPay, result.TradeStatus)
	}
	if f.gateway.calls() != 1 {
		t.Fatalf("trade-not-found must not be retried, got %d calls", f.gateway.calls())
	}
}

func TestQueryPaymentStatusExhaustsRetryBudget(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.gateway.queryErr = errors.New("connection reset")

	_, err := f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if f.gateway.calls() != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", f.gateway.calls())
	}
}

func TestQueryPaymentStatusRejectsPaymentWithoutOrder(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := f.addPayment(&entity.Payment{
		UserID:    7,
		Method:    entity.MethodGateway,
		Amount:    decimal.RequireFromString("10.00"),
		Status:    entity.StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})

	_, err := f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestQueryPaymentStatusNonTerminalTradeLeavesPaymentPending(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.gateway.queryResult = &gateway.QueryResult{
		TradeStatus: gateway.TradeWaitBuyerPay,
		MerchantRef: *payment.MerchantRef,
		Amount:      payment.Amount,
	}

	result, err := f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.PaymentStatus != entity.StatusPending {
		t.Fatalf("expected pending, got %s", result.PaymentStatus)
	}
	if f.userRepo.creditCalls != 0 {
		t.Fatalf("non-terminal trade must not credit, got %d", f.userRepo.creditCalls)
	}
}

func TestConcurrentPollAndCallbackCreditExactlyOnce(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "60.00")
	f.gateway.queryResult = &gateway.QueryResult{
		TradeStatus: gateway.TradeSuccess,
		MerchantRef: *payment.MerchantRef,
		Amount:      payment.Amount,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var pollErr, callbackErr error
	go func() {
		defer wg.Done()
		_, pollErr = f.svc.QueryPaymentStatus(context.Background(), payment.ID)
	}()
	go func() {
		defer wg.Done()
		callbackErr = f.svc.HandleGatewayNotification(context.Background(), notificationParams(*payment.MerchantRef, gateway.TradeSuccess))
	}()
	wg.Wait()

	if pollErr != nil {
		t.Fatalf("poll failed: %v", pollErr)
	}
	if callbackErr != nil {
		t.Fatalf("callback failed: %v", callbackErr)
	}
	if f.userRepo.creditCalls != 1 {
		t.Fatalf("expected exactly one credit, got %d", f.userRepo.creditCalls)
	}
	if got := f.userRepo.balance(7); !got.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected balance 60.00, got %s", got)
	}
}

func TestRunReconcileBatchSettlesStalePayments(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.paymentRepo.mu.Lock()
	f.paymentRepo.payments[payment.ID].UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	f.paymentRepo.mu.Unlock()
	f.gateway.queryResult = &gateway.QueryResult{
		TradeStatus: gateway.TradeSuccess,
		MerchantRef: *payment.MerchantRef,
		Amount:      payment.Amount,
	}

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByID(context.Background(), payment.ID)
	if stored.Status != entity.StatusSuccessful {
		t.Fatalf("expected successful, got %s", stored.Status)
	}
	if f.userRepo.creditCalls != 1 {
		t.Fatalf("expected one credit, got %d", f.userRepo.creditCalls)
	}
}

func TestRunReconcileBatchSkipsUnknownTrades(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.paymentRepo.mu.Lock()
	f.paymentRepo.payments[payment.ID].UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	f.paymentRepo.mu.Unlock()
	f.gateway.queryErr = gateway.ErrTradeNotFound

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByID(context.Background(), payment.ID)
	if stored.Status != entity.StatusPending {
		t.Fatalf("unknown trade must stay pending, got %s", stored.Status)
	}
}

func TestRunExpirePendingBatchFailsStalePayments(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")
	f.paymentRepo.mu.Lock()
	f.paymentRepo.payments[payment.ID].CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	f.paymentRepo.mu.Unlock()

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByID(context.Background(), payment.ID)
	if stored.Status != entity.StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if f.userRepo.creditCalls != 0 {
		t.Fatalf("expiring a gateway payment must not credit, got %d", f.userRepo.creditCalls)
	}
}

func TestRunExpirePendingBatchLeavesFreshPaymentsAlone(t *testing.T) {
	f := newServiceFixture()
	f.addUser(7, "0.00")
	payment := pendingGatewayPayment(f, 7, "40.00")

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByID(context.Background(), payment.ID)
	if stored.Status != entity.StatusPending {
		t.Fatalf("fresh payment must stay pending, got %s", stored.Status)
	}
}
