package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/factory"
	"github.com/venuehub/ms-go-booking/app/gateway"
	"github.com/venuehub/ms-go-booking/app/repository"
	"github.com/venuehub/ms-go-booking/config"
)

const defaultBatchSize = int32(100)

type paymentRepository interface {
	Create(ctx context.Context, tx repository.DBTX, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByMerchantRef(ctx context.Context, ref string) (*entity.Payment, error)
	ListByUser(ctx context.Context, userID uint64) ([]*entity.Payment, error)
	ListByUserAndStatus(ctx context.Context, userID uint64, status string) ([]*entity.Payment, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Payment, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
	CompareAndSetStatus(ctx context.Context, tx repository.DBTX, id uint64, expected, next string) (bool, error)
	SetMerchantRef(ctx context.Context, id uint64, ref string) (bool, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	Credit(ctx context.Context, tx repository.DBTX, id uint64, amount decimal.Decimal) error
	Debit(ctx context.Context, tx repository.DBTX, id uint64, amount decimal.Decimal) (bool, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type notificationRepository interface {
	Create(ctx context.Context, notification *entity.GatewayNotification) error
}

type txRunner interface {
	Run(ctx context.Context, fn func(tx repository.DBTX) error) error
}

type gatewayClient interface {
	NewMerchantRef(paymentID uint64, createdAt time.Time) string
	PrecreateOrder(ctx context.Context, merchantRef string, amount decimal.Decimal) (*gateway.PrecreateResult, error)
	QueryStatus(ctx context.Context, merchantRef string) (*gateway.QueryResult, error)
	VerifyNotification(params map[string]string) error
}

type paymentCache interface {
	GetPayment(ctx context.Context, id uint64) (*entity.Payment, bool)
	SetPayment(ctx context.Context, payment *entity.Payment)
	GetUserPayments(ctx context.Context, userID uint64) ([]*entity.Payment, bool)
	SetUserPayments(ctx context.Context, userID uint64, payments []*entity.Payment)
	Invalidate(ctx context.Context, paymentID, userID uint64)
}

type PaymentService struct {
	paymentRepo      paymentRepository
	userRepo         userRepository
	eventRepo        paymentEventRepository
	notificationRepo notificationRepository
	gateway          gatewayClient
	tx               txRunner
	cache            paymentCache
	paymentsCfg      config.PaymentsConfig
	logger           logrus.FieldLogger
}

func NewPaymentService(
	paymentRepo paymentRepository,
	userRepo userRepository,
	eventRepo paymentEventRepository,
	notificationRepo notificationRepository,
	gatewayClient gatewayClient,
	tx txRunner,
	cache paymentCache,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo:      paymentRepo,
		userRepo:         userRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		gateway:          gatewayClient,
		tx:               tx,
		cache:            cache,
		paymentsCfg:      paymentsCfg,
		logger:           factory.NewModuleLogger("payment-service"),
	}
}

// CreatePayment records a payment attempt. A balance-method payment is
// settled inside the creating transaction and is never observably pending;
// a gateway-method payment starts pending and settles later via callback or
// reconciliation.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uint64, method string, amount decimal.Decimal) (*entity.Payment, error) {
	if !entity.ValidMethod(method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, method)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		UserID:    userID,
		Method:    method,
		Amount:    amount,
		Status:    entity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if method == entity.MethodBalance {
		err = s.tx.Run(ctx, func(tx repository.DBTX) error {
			debited, err := s.userRepo.Debit(ctx, tx, userID, amount)
			if err != nil {
				return err
			}
			if debited {
				payment.Status = entity.StatusSuccessful
			} else {
				payment.Status = entity.StatusFailed
			}
			return s.paymentRepo.Create(ctx, tx, payment)
		})
	} else {
		err = s.paymentRepo.Create(ctx, nil, payment)
	}
	if err != nil {
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: "payment_created",
		NewStatus: payment.Status,
		CreatedAt: now,
	})
	s.invalidateCache(ctx, payment)

	if payment.Status == entity.StatusFailed {
		return payment, ErrInsufficientBalance
	}
	return payment, nil
}

// InitiateGatewayPayment precreates the external order for a pending
// gateway-method payment and returns the scan code for the client to render.
// The merchant reference is persisted before the first external call and is
// never reassigned.
func (s *PaymentService) InitiateGatewayPayment(ctx context.Context, paymentID uint64) (*gateway.PrecreateResult, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Method != entity.MethodGateway {
		return nil, fmt.Errorf("%w: payment %d is not a gateway payment", ErrInvalidRequest, paymentID)
	}
	if payment.Status != entity.StatusPending {
		return nil, fmt.Errorf("%w: payment %d is already %s", ErrNotSettleable, paymentID, payment.Status)
	}

	ref, err := s.ensureMerchantRef(ctx, payment)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.PrecreateOrder(ctx, ref, payment.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	s.invalidateCache(ctx, payment)
	return result, nil
}

func (s *PaymentService) ensureMerchantRef(ctx context.Context, payment *entity.Payment) (string, error) {
	if payment.MerchantRef != nil {
		return gateway.SanitizeMerchantRef(*payment.MerchantRef), nil
	}

	ref := s.gateway.NewMerchantRef(payment.ID, payment.CreatedAt)
	assigned, err := s.paymentRepo.SetMerchantRef(ctx, payment.ID, ref)
	if err != nil {
		return "", err
	}
	if assigned {
		payment.MerchantRef = &ref
		return ref, nil
	}

	// Another initiation assigned the reference first; reuse it.
	current, err := s.paymentRepo.FindByID(ctx, payment.ID)
	if err != nil {
		return "", err
	}
	if current == nil || current.MerchantRef == nil {
		return "", fmt.Errorf("merchant reference for payment %d vanished", payment.ID)
	}
	payment.MerchantRef = current.MerchantRef
	return gateway.SanitizeMerchantRef(*current.MerchantRef), nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	if s.cache != nil {
		if payment, ok := s.cache.GetPayment(ctx, id); ok {
			return payment, nil
		}
	}

	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if s.cache != nil {
		s.cache.SetPayment(ctx, payment)
	}
	return payment, nil
}

func (s *PaymentService) ListUserPayments(ctx context.Context, userID uint64) ([]*entity.Payment, error) {
	if s.cache != nil {
		if payments, ok := s.cache.GetUserPayments(ctx, userID); ok {
			return payments, nil
		}
	}

	payments, err := s.paymentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetUserPayments(ctx, userID, payments)
	}
	return payments, nil
}

func (s *PaymentService) ListUserPaymentsByStatus(ctx context.Context, userID uint64, status string) ([]*entity.Payment, error) {
	if !entity.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return s.paymentRepo.ListByUserAndStatus(ctx, userID, status)
}

func (s *PaymentService) invalidateCache(ctx context.Context, payment *entity.Payment) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, payment.ID, payment.UserID)
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}
