package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/gateway"
)

// PaymentStatusResult is the outcome of a client-initiated status poll.
type PaymentStatusResult struct {
	PaymentStatus string
	TradeStatus   string
	Amount        decimal.Decimal
	MerchantRef   string
}

// QueryPaymentStatus asks the gateway for the authoritative trade state
// and settles the payment if the gateway reports a terminal outcome. It is
// safe to run concurrently with gateway notifications for the same payment.
func (s *PaymentService) QueryPaymentStatus(ctx context.Context, paymentID uint64) (*PaymentStatusResult, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Method != entity.MethodGateway || payment.MerchantRef == nil {
		return nil, fmt.Errorf("%w: payment %d has no gateway order", ErrInvalidRequest, paymentID)
	}

	ref := *payment.MerchantRef

	result, err := s.queryWithRetry(ctx, ref)
	if err != nil {
		if errors.Is(err, gateway.ErrTradeNotFound) {
			// The order was never scanned, or the gateway has not yet
			// registered it. Not a failure: report the current state.
			return &PaymentStatusResult{
				PaymentStatus: payment.Status,
				TradeStatus:   gateway.TradeWaitBuyerPay,
				Amount:        payment.Amount,
				MerchantRef:   ref,
			}, nil
		}
		return nil, err
	}

	target, terminal := mapTradeStatus(result.TradeStatus)
	if !terminal {
		return &PaymentStatusResult{
			PaymentStatus: payment.Status,
			TradeStatus:   result.TradeStatus,
			Amount:        payment.Amount,
			MerchantRef:   ref,
		}, nil
	}

	settled, err := s.Settle(ctx, paymentID, target)
	if err != nil {
		return nil, err
	}

	return &PaymentStatusResult{
		PaymentStatus: settled.Status,
		TradeStatus:   result.TradeStatus,
		Amount:        settled.Amount,
		MerchantRef:   ref,
	}, nil
}

// queryWithRetry polls the gateway up to the configured attempt budget with
// a fixed delay between attempts. A trade-not-found response is definitive
// and never retried.
func (s *PaymentService) queryWithRetry(ctx context.Context, merchantRef string) (*gateway.QueryResult, error) {
	attempts := s.paymentsCfg.QueryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := s.gateway.QueryStatus(ctx, merchantRef)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, gateway.ErrTradeNotFound) {
			return nil, err
		}
		lastErr = err
		s.logger.WithError(err).WithField("merchant_ref", merchantRef).
			WithField("attempt", attempt).Warn("Gateway status query failed")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.paymentsCfg.QueryRetryDelay):
		}
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrGatewayUnavailable, attempts, lastErr)
}
