package entity

import "time"

const (
	NotificationProcessed int32 = 10
	NotificationIgnored   int32 = 15
	NotificationRejected  int32 = 20
)

// GatewayNotification is the audit record for every push notification the
// gateway delivers, including the ones that fail signature verification.
type GatewayNotification struct {
	ID uint64

	PaymentID *uint64

	MerchantRef string
	TradeStatus string
	ParamsJSON  string
	Status      int32
	Error       *string

	CreatedAt time.Time
}
