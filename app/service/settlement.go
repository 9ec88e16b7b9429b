package service

import (
	"context"
	"fmt"
	"time"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/repository"
)

// settleMaxPasses bounds the re-fetch loop after a lost CAS. One retry is
// enough in practice: losing the race means another settler committed a
// terminal status.
const settleMaxPasses = 3

// Settle moves a payment from pending to the target terminal status exactly
// once, no matter how many callers (callback, poller, jobs, retries) invoke
// it concurrently. The status write and the balance mutation share one
// transaction; the conditional UPDATE in CompareAndSetStatus is the sole
// arbiter of who wins.
func (s *PaymentService) Settle(ctx context.Context, paymentID uint64, target string) (*entity.Payment, error) {
	if !entity.TerminalStatus(target) {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidRequest, target)
	}

	for pass := 0; pass < settleMaxPasses; pass++ {
		payment, err := s.paymentRepo.FindByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, ErrPaymentNotFound
		}

		if entity.TerminalStatus(payment.Status) {
			if payment.Status == target {
				// Idempotent no-op: the requested outcome already holds.
				return payment, nil
			}
			return nil, fmt.Errorf("%w: payment %d is already %s, refusing %s",
				ErrSettlementConflict, payment.ID, payment.Status, target)
		}

		var won bool
		err = s.tx.Run(ctx, func(tx repository.DBTX) error {
			ok, err := s.paymentRepo.CompareAndSetStatus(ctx, tx, payment.ID, entity.StatusPending, target)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			won = true
			return s.applyLedgerEffect(ctx, tx, payment, target)
		})
		if err != nil {
			return nil, err
		}
		if !won {
			// Another settler committed first; re-fetch and converge on
			// whatever it decided.
			continue
		}

		now := time.Now().UTC()
		oldStatus := payment.Status
		payment.Status = target
		payment.UpdatedAt = now

		_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
			PaymentID: payment.ID,
			EventType: "payment_settled",
			OldStatus: &oldStatus,
			NewStatus: target,
			CreatedAt: now,
		})
		s.invalidateCache(ctx, payment)

		return payment, nil
	}

	return nil, fmt.Errorf("settlement of payment %d did not converge", paymentID)
}

// applyLedgerEffect runs inside the same transaction as the winning CAS, so
// a crash cannot separate the status transition from the balance mutation.
// A successful settlement credits the amount; a failed balance-method
// payment returns the amount its creation transaction debited.
func (s *PaymentService) applyLedgerEffect(ctx context.Context, tx repository.DBTX, payment *entity.Payment, target string) error {
	switch {
	case target == entity.StatusSuccessful:
		return s.userRepo.Credit(ctx, tx, payment.UserID, payment.Amount)
	case target == entity.StatusFailed && payment.Method == entity.MethodBalance:
		return s.userRepo.Credit(ctx, tx, payment.UserID, payment.Amount)
	default:
		return nil
	}
}
