package mysql

import (
	"context"
	"errors"

	custDomain "loanflow/internal/domain/customer"

	"gorm.io/gorm"
)

type CustomerRepository struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) *CustomerRepository { return &CustomerRepository{db: db} }

func (r *CustomerRepository) GetByCustomerID(ctx context.Context, customerID string) (*custDomain.Customer, error) {
	var out custDomain.Customer
	res := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, custDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *CustomerRepository) GetCrmRecord(ctx context.Context, customerID string) (*custDomain.CrmRecord, error) {
	var out custDomain.CrmRecord
	res := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, custDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, c *custDomain.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CustomerRepository) CreateCrmRecord(ctx context.Context, rec *custDomain.CrmRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
