package mapper

import (
	"time"

	"github.com/venuehub/ms-go-booking/app/entity"
	"github.com/venuehub/ms-go-booking/app/types"
)

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		ID:          item.ID,
		UserID:      item.UserID,
		Method:      item.Method,
		Amount:      item.Amount.StringFixed(2),
		Status:      item.Status,
		MerchantRef: item.MerchantRef,
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}
