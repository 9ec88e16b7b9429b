package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/gateway"
)

// HandleGatewayNotification processes one push notification from the
// gateway. Signature verification gates everything; the merchant reference
// is re-sanitized because the provider echoes it back with encoding
// artifacts; unmapped trade statuses are acknowledged without settling so
// the provider stops retrying while the decision stays upstream.
func (s *PaymentService) HandleGatewayNotification(ctx context.Context, params map[string]string) error {
	if err := s.gateway.VerifyNotification(params); err != nil {
		s.recordNotification(ctx, nil, params, entity.NotificationRejected, err)
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	ref := gateway.SanitizeMerchantRef(params["out_trade_no"])
	tradeStatus := params["trade_status"]

	target, terminal := mapTradeStatus(tradeStatus)
	if !terminal {
		s.logger.WithField("trade_status", tradeStatus).WithField("merchant_ref", ref).
			Info("Gateway notification ignored: non-terminal trade status")
		s.recordNotification(ctx, nil, params, entity.NotificationIgnored, nil)
		return nil
	}

	payment, err := s.paymentRepo.FindByMerchantRef(ctx, ref)
	if err != nil {
		return err
	}
	if payment == nil {
		s.recordNotification(ctx, nil, params, entity.NotificationRejected, ErrPaymentNotFound)
		return fmt.Errorf("%w: no payment for merchant reference %s", ErrPaymentNotFound, ref)
	}

	if _, err := s.Settle(ctx, payment.ID, target); err != nil {
		if errors.Is(err, ErrSettlementConflict) {
			s.logger.WithError(err).WithField("payment_id", payment.ID).
				Error("Gateway notification conflicts with settled status")
		}
		s.recordNotification(ctx, &payment.ID, params, entity.NotificationRejected, err)
		return err
	}

	s.recordNotification(ctx, &payment.ID, params, entity.NotificationProcessed, nil)
	return nil
}

func mapTradeStatus(tradeStatus string) (string, bool) {
	switch tradeStatus {
	case gateway.TradeSuccess, gateway.TradeFinished:
		return entity.StatusSuccessful, true
	case gateway.TradeClosed:
		return entity.StatusFailed, true
	default:
		return "", false
	}
}

// recordNotification keeps the audit trail of everything the gateway sent,
// verified or not. Best effort: a failed insert never fails the callback.
func (s *PaymentService) recordNotification(ctx context.Context, paymentID *uint64, params map[string]string, status int32, cause error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return
	}

	var errText *string
	if cause != nil {
		msg := truncate(cause.Error(), 1024)
		errText = &msg
	}

	_ = s.notificationRepo.Create(ctx, &entity.GatewayNotification{
		PaymentID:   paymentID,
		MerchantRef: gateway.SanitizeMerchantRef(params["out_trade_no"]),
		TradeStatus: params["trade_status"],
		ParamsJSON:  string(paramsJSON),
		Status:      status,
		Error:       errText,
		CreatedAt:   time.Now().UTC(),
	})
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
