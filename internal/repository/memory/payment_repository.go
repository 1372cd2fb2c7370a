package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/repository/contract"

	"github.com/google/uuid"
)

type PaymentRepository struct {
	mu           sync.RWMutex
	transactions map[string]*entity.PaymentTransaction
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{transactions: make(map[string]*entity.PaymentTransaction)}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *entity.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[tx.Reference]; exists {
		return fmt.Errorf("duplicate payment reference %q", tx.Reference)
	}
	if tx.Id == uuid.Nil {
		tx.Id = uuid.New()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	cp := *tx
	r.transactions[tx.Reference] = &cp
	return nil
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*entity.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.transactions[reference]
	if !ok {
		return nil, nil
	}
	out := *tx
	return &out, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, reference string, status entity.PaymentStatus, providerData map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[reference]
	if !ok || tx.Status != entity.PaymentStatusPending {
		return false, nil
	}
	tx.Status = status
	if providerData != nil {
		tx.ProviderData = providerData
	}
	tx.UpdatedAt = time.Now()
	return true, nil
}

var _ contract.PaymentRepository = (*PaymentRepository)(nil)
