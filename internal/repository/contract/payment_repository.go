package contract

import (
	"context"

	"marketplace-be/internal/entity"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *entity.PaymentTransaction) error
	FindByReference(ctx context.Context, reference string) (*entity.PaymentTransaction, error)
	// UpdateStatus moves a pending transaction to status. It reports false if
	// the transaction was no longer pending.
	UpdateStatus(ctx context.Context, reference string, status entity.PaymentStatus, providerData map[string]interface{}) (bool, error)
}
