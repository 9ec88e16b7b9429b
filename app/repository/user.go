package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/venuehub/ms-go-booking/app/entity"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) q(tx DBTX) DBTX {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT user_id, username, balance, created_at, updated_at FROM users WHERE user_id = ?`

	user := &entity.User{}
	var balanceRaw string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&balanceRaw,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	balance, err := decimalFromString(balanceRaw)
	if err != nil {
		return nil, err
	}
	user.Balance = balance

	return user, nil
}

// Credit adds amount to the user's balance. It runs inside the settlement
// transaction when tx is set.
func (r *UserRepository) Credit(ctx context.Context, tx DBTX, id uint64, amount decimal.Decimal) error {
	query := `UPDATE users SET balance = balance + ?, updated_at = NOW() WHERE user_id = ?`

	result, err := r.q(tx).ExecContext(ctx, query, decimalValue(amount), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Debit subtracts amount iff the balance covers it, as one conditional UPDATE.
// Returns false when funds are insufficient.
func (r *UserRepository) Debit(ctx context.Context, tx DBTX, id uint64, amount decimal.Decimal) (bool, error) {
	query := `UPDATE users SET balance = balance - ?, updated_at = NOW() WHERE user_id = ? AND balance >= ?`

	value := decimalValue(amount)
	result, err := r.q(tx).ExecContext(ctx, query, value, id, value)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
