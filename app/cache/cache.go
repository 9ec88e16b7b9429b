// Package cache is the read-through cache for payment reads and the
// best-effort invalidation hook the settlement path fires after commit.
// Staleness is bounded by the TTL; correctness never depends on it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/factory"
)

type PaymentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewPaymentCache(client *redis.Client, ttl time.Duration) *PaymentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PaymentCache{
		client: client,
		ttl:    ttl,
		logger: factory.NewModuleLogger("payment-cache"),
	}
}

func PaymentKey(id uint64) string {
	return fmt.Sprintf("payment:%d", id)
}

func UserPaymentsKey(userID uint64) string {
	return fmt.Sprintf("payment:user:%d", userID)
}

func (c *PaymentCache) GetPayment(ctx context.Context, id uint64) (*entity.Payment, bool) {
	raw, err := c.client.Get(ctx, PaymentKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("cache read failed")
		}
		return nil, false
	}

	payment := &entity.Payment{}
	if err := json.Unmarshal(raw, payment); err != nil {
		return nil, false
	}
	return payment, true
}

func (c *PaymentCache) SetPayment(ctx context.Context, payment *entity.Payment) {
	raw, err := json.Marshal(payment)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, PaymentKey(payment.ID), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("cache write failed")
	}
}

func (c *PaymentCache) GetUserPayments(ctx context.Context, userID uint64) ([]*entity.Payment, bool) {
	raw, err := c.client.Get(ctx, UserPaymentsKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("cache read failed")
		}
		return nil, false
	}

	payments := make([]*entity.Payment, 0)
	if err := json.Unmarshal(raw, &payments); err != nil {
		return nil, false
	}
	return payments, true
}

func (c *PaymentCache) SetUserPayments(ctx context.Context, userID uint64, payments []*entity.Payment) {
	raw, err := json.Marshal(payments)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, UserPaymentsKey(userID), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("cache write failed")
	}
}

// Invalidate drops both keys touched by a payment mutation. Failures are
// logged and swallowed; the TTL bounds how long a stale entry can survive.
func (c *PaymentCache) Invalidate(ctx context.Context, paymentID, userID uint64) {
	if err := c.client.Del(ctx, PaymentKey(paymentID), UserPaymentsKey(userID)).Err(); err != nil {
		c.logger.WithError(err).Warn("cache invalidation failed")
	}
}
