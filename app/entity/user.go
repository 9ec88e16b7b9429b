package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// User carries the stored balance. Balance is never negative and is written
// only from within the payment creation and settlement transactions.
type User struct {
	ID       uint64
	Username string
	Balance  decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}
