package memory

import (
	"context"

	"marketplace-be/internal/repository/contract"
	"marketplace-be/internal/repository/unitofwork"
)

// Store groups the in-memory repositories and hands out units of work over
// them. Begin/Commit/Rollback are no-ops; writes are visible immediately.
type Store struct {
	Users         *UserRepository
	Subscriptions *SubscriptionRepository
	Plans         *PlanRepository
	Payments      *PaymentRepository
	Notifications *NotificationRepository
}

func NewStore() *Store {
	return &Store{
		Users:         NewUserRepository(),
		Subscriptions: NewSubscriptionRepository(),
		Plans:         NewPlanRepository(),
		Payments:      NewPaymentRepository(),
		Notifications: NewNotificationRepository(),
	}
}

func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) UserRepository() contract.UserRepository {
	return u.store.Users
}

func (u *unitOfWork) SubscriptionRepository() contract.SubscriptionRepository {
	return u.store.Subscriptions
}

func (u *unitOfWork) PlanRepository() contract.PlanRepository {
	return u.store.Plans
}

func (u *unitOfWork) PaymentRepository() contract.PaymentRepository {
	return u.store.Payments
}

var _ unitofwork.RepositoryFactory = (*Store)(nil)
