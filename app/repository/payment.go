package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/venuehub/ms-go-booking/app/entity"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrMerchantRefConflict = errors.New("merchant reference already exists")
)

const paymentColumns = `payment_id, user_id, payment_method, amount, payment_status, merchant_ref, created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// q returns the executor for a call: the supplied transaction when the caller
// runs inside one, the repository's own connection otherwise.
func (r *PaymentRepository) q(tx DBTX) DBTX {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *PaymentRepository) Create(ctx context.Context, tx DBTX, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (user_id, payment_method, amount, payment_status, merchant_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q(tx).ExecContext(ctx, query,
		payment.UserID,
		payment.Method,
		decimalValue(payment.Amount),
		payment.Status,
		nullableStringValue(payment.MerchantRef),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrMerchantRefConflict
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) FindByMerchantRef(ctx context.Context, ref string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE merchant_ref = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, ref), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint64) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = ? ORDER BY payment_id DESC`
	return r.list(ctx, query, userID)
}

func (r *PaymentRepository) ListByUserAndStatus(ctx context.Context, userID uint64, status string) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = ? AND payment_status = ? ORDER BY payment_id DESC`
	return r.list(ctx, query, userID, status)
}

// ListExpiredPending returns gateway-method payments that have been pending
// since before the cutoff. The expire job settles them to failed.
func (r *PaymentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_status = ? AND payment_method = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.StatusPending, entity.MethodGateway, cutoff, limit)
}

// ListForReconcile returns stale pending gateway payments that already have a
// merchant reference, meaning an external order may exist for them.
func (r *PaymentRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_status = ? AND payment_method = ? AND merchant_ref IS NOT NULL AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.StatusPending, entity.MethodGateway, before, limit)
}

// CompareAndSetStatus is the only sanctioned way to change a payment status.
// It succeeds iff the stored status still equals expected, as a single
// conditional UPDATE, so concurrent settlers cannot both win.
func (r *PaymentRepository) CompareAndSetStatus(ctx context.Context, tx DBTX, id uint64, expected, next string) (bool, error) {
	query := `UPDATE payments SET payment_status = ?, updated_at = ? WHERE payment_id = ? AND payment_status = ?`

	result, err := r.q(tx).ExecContext(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetMerchantRef assigns the merchant reference at most once; a second call
// for the same payment leaves the row untouched and returns false.
func (r *PaymentRepository) SetMerchantRef(ctx context.Context, id uint64, ref string) (bool, error) {
	query := `UPDATE payments SET merchant_ref = ?, updated_at = ? WHERE payment_id = ? AND merchant_ref IS NULL`

	result, err := r.db.ExecContext(ctx, query, ref, time.Now().UTC(), id)
	if err != nil {
		if isDuplicateEntryError(err) {
			return false, ErrMerchantRefConflict
		}
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var amountRaw string
	var merchantRef sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Method,
		&amountRaw,
		&payment.Status,
		&merchantRef,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	amount, err := decimalFromString(amountRaw)
	if err != nil {
		return err
	}
	payment.Amount = amount
	payment.MerchantRef = stringPtrFromNull(merchantRef)

	return nil
}
