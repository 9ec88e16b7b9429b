package service

import (
	"context"
	"errors"
	"time"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/gateway"
)

// RunReconcileBatch sweeps pending gateway payments that have an order at
// the provider but have not been settled for a while, asking the gateway
// for the authoritative state of each. Individual failures do not stop the
// sweep; the first error is reported at the end.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	before := time.Now().UTC().Add(-s.paymentsCfg.ReconcileStaleAfter)

	payments, err := s.paymentRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}
	s.logger.WithField("count", len(payments)).Info("Reconcile batch started")

	var firstErr error
	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return keepFirstErr(firstErr, err)
		}

		result, err := s.gateway.QueryStatus(ctx, *payment.MerchantRef)
		if err != nil {
			if errors.Is(err, gateway.ErrTradeNotFound) {
				continue
			}
			s.logger.WithError(err).WithField("payment_id", payment.ID).
				Warn("Reconcile query failed")
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		target, terminal := mapTradeStatus(result.TradeStatus)
		if !terminal {
			continue
		}

		if _, err := s.Settle(ctx, payment.ID, target); err != nil {
			if errors.Is(err, ErrSettlementConflict) {
				// Someone settled it the other way since we listed it.
				// The record is authoritative; nothing to do here.
				continue
			}
			s.logger.WithError(err).WithField("payment_id", payment.ID).
				Error("Reconcile settlement failed")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch fails pending gateway payments older than the
// configured timeout. Settlement goes through the same conditional update
// as every other path, so a concurrent success wins and the expiry becomes
// a no-op conflict.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.paymentsCfg.PendingTimeout)

	payments, err := s.paymentRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}
	s.logger.WithField("count", len(payments)).Info("Expire pending batch started")

	var firstErr error
	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return keepFirstErr(firstErr, err)
		}

		if _, err := s.Settle(ctx, payment.ID, entity.StatusFailed); err != nil {
			if errors.Is(err, ErrSettlementConflict) {
				continue
			}
			s.logger.WithError(err).WithField("payment_id", payment.ID).
				Error("Expiry settlement failed")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(first, next error) error {
	if first != nil {
		return first
	}
	return next
}
