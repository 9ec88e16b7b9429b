package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrNotSettleable       = errors.New("payment is not in a settleable state")
	ErrSettlementConflict  = errors.New("conflicting settlement")
	ErrSignatureInvalid    = errors.New("notification signature invalid")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
)
