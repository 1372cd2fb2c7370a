package unitofwork

import (
	"context"
	"errors"

	"marketplace-be/internal/repository/contract"
	"marketplace-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive   = errors.New("unit of work: transaction already started")
	ErrTxInactive = errors.New("unit of work: no transaction in progress")
)

type gormFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return gormFactory{db: db}
}

func (f gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

type gormUnitOfWork struct {
	pool *gorm.DB
	tx   *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{pool: db}
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx == nil {
		return u.pool
	}
	return u.tx
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.pool.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	return u.finish((*gorm.DB).Commit)
}

func (u *gormUnitOfWork) Rollback() error {
	return u.finish((*gorm.DB).Rollback)
}

// finish ends the transaction and returns the unit to pool mode either way.
func (u *gormUnitOfWork) finish(end func(*gorm.DB) *gorm.DB) error {
	if u.tx == nil {
		return ErrTxInactive
	}
	tx := u.tx
	u.tx = nil
	return end(tx).Error
}

func (u *gormUnitOfWork) UserRepository() contract.UserRepository {
	return implementation.NewUserRepository(u.conn())
}

func (u *gormUnitOfWork) SubscriptionRepository() contract.SubscriptionRepository {
	return implementation.NewSubscriptionRepository(u.conn())
}

func (u *gormUnitOfWork) PlanRepository() contract.PlanRepository {
	return implementation.NewPlanRepository(u.conn())
}

func (u *gormUnitOfWork) PaymentRepository() contract.PaymentRepository {
	return implementation.NewPaymentRepository(u.conn())
}
