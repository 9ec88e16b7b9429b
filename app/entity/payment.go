package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodBalance = "balance"
	MethodGateway = "gateway"
)

const (
	StatusPending    = "pending"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
)

// Payment is a single payment attempt. Status is monotonic: once it leaves
// "pending" it never changes again. MerchantRef is assigned at most once, for
// gateway-method payments only, before the first call to the gateway.
type Payment struct {
	ID     uint64
	UserID uint64

	Method string
	Amount decimal.Decimal
	Status string

	MerchantRef *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func TerminalStatus(status string) bool {
	switch status {
	case StatusSuccessful, StatusFailed:
		return true
	default:
		return false
	}
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusSuccessful, StatusFailed:
		return true
	default:
		return false
	}
}

func ValidMethod(method string) bool {
	return method == MethodBalance || method == MethodGateway
}
