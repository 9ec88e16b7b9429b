package repository

import (
	"context"
	"database/sql"
	"errors"
)

// TxRunner runs a function inside one database transaction. The settlement
// engine uses it to couple the conditional status write and the balance
// mutation into a single atomic unit.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) Run(ctx context.Context, fn func(tx DBTX) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
