package unitofwork

import (
	"context"

	"marketplace-be/internal/repository/contract"
)

// UnitOfWork hands out repositories that share one transaction once Begin
// has been called. Before Begin they run against the pool directly.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	SubscriptionRepository() contract.SubscriptionRepository
	PlanRepository() contract.PlanRepository
	PaymentRepository() contract.PaymentRepository
}

// RepositoryFactory creates a fresh UnitOfWork per request or job run.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
