package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketplace-be/internal/entity"
	"marketplace-be/internal/mapper"
	"marketplace-be/internal/model"
	"marketplace-be/internal/repository/contract"
	"marketplace-be/internal/repository/specification"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PaymentMapper
}

func NewPaymentRepository(db *gorm.DB) contract.PaymentRepository {
	return &PaymentRepositoryImpl{
		db:     db,
		mapper: mapper.NewPaymentMapper(),
	}
}

func (r *PaymentRepositoryImpl) Create(ctx context.Context, tx *entity.PaymentTransaction) error {
	m := r.mapper.ToModel(tx)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*tx = *r.mapper.ToEntity(m)
	return nil
}

func (r *PaymentRepositoryImpl) FindByReference(ctx context.Context, reference string) (*entity.PaymentTransaction, error) {
	var m model.PaymentTransaction
	if err := (specification.ByReference{Reference: reference}).Apply(r.db.WithContext(ctx)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PaymentRepositoryImpl) UpdateStatus(ctx context.Context, reference string, status entity.PaymentStatus, providerData map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now(),
	}
	if providerData != nil {
		if b, err := json.Marshal(providerData); err == nil {
			values["provider_data"] = datatypes.JSON(b)
		}
	}

	result := r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("reference = ? AND status = ?", reference, string(entity.PaymentStatusPending)).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
