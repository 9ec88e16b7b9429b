package repository

import (
	"context"

	"github.com/venuehub/ms-go-booking/app/entity"
)

type GatewayNotificationRepository struct {
	db DBTX
}

func NewGatewayNotificationRepository(db DBTX) *GatewayNotificationRepository {
	return &GatewayNotificationRepository{db: db}
}

func (r *GatewayNotificationRepository) Create(ctx context.Context, notification *entity.GatewayNotification) error {
	query := `
		INSERT INTO gateway_notifications (payment_id, merchant_ref, trade_status, params_json, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var paymentID interface{}
	if notification.PaymentID != nil {
		paymentID = *notification.PaymentID
	}

	result, err := r.db.ExecContext(ctx, query,
		paymentID,
		notification.MerchantRef,
		notification.TradeStatus,
		notification.ParamsJSON,
		notification.Status,
		nullableStringValue(notification.Error),
		notification.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	notification.ID = uint64(id)
	return nil
}
