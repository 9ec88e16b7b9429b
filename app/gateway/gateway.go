// Package gateway talks to the external scan-to-pay provider: order
// precreation, synchronous trade queries, and verification of the push
// notifications the provider delivers.
package gateway

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Trade statuses as reported by the provider.
const (
	TradeSuccess      = "TRADE_SUCCESS"
	TradeFinished     = "TRADE_FINISHED"
	TradeClosed       = "TRADE_CLOSED"
	TradeWaitBuyerPay = "WAIT_BUYER_PAY"
)

var (
	// ErrTradeNotFound means the order has not propagated to the provider
	// yet. It is a still-pending answer, not a transport failure, and is
	// never retried.
	ErrTradeNotFound = errors.New("trade not found at gateway")

	// ErrGatewayDeclined is a business-level rejection from the provider.
	ErrGatewayDeclined = errors.New("gateway declined request")

	ErrSignatureInvalid = errors.New("gateway signature verification failed")
)

type PrecreateResult struct {
	ScanCode    string
	MerchantRef string
}

type QueryResult struct {
	TradeStatus string
	TradeNo     string
	MerchantRef string
	Amount      decimal.Decimal
}
