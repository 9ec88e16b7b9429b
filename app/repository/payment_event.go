package repository

import (
	"context"
	"database/sql"

	"github.com/venuehub/ms-go-booking/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (payment_id, event_type, old_status, new_status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

func (r *PaymentEventRepository) ListByPaymentID(ctx context.Context, paymentID uint64) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT event_id, payment_id, event_type, old_status, new_status, created_at
		FROM payment_events
		WHERE payment_id = ?
		ORDER BY event_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		item := &entity.PaymentEvent{}
		var oldStatus sql.NullString
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.EventType, &oldStatus, &item.NewStatus, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.OldStatus = stringPtrFromNull(oldStatus)
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
