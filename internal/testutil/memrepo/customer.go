package memrepo

import (
	"context"
	"sync"

	"loanflow/internal/domain/customer"
)

type CustomerRepo struct {
	mu        sync.Mutex
	customers map[string]customer.Customer
	crm       map[string]customer.CrmRecord
}

func NewCustomerRepo() *CustomerRepo {
	return &CustomerRepo{
		customers: map[string]customer.Customer{},
		crm:       map[string]customer.CrmRecord{},
	}
}

func (r *CustomerRepo) GetByCustomerID(ctx context.Context, customerID string) (*customer.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[customerID]
	if !ok {
		return nil, customer.ErrNotFound
	}
	out := c
	return &out, nil
}

func (r *CustomerRepo) GetCrmRecord(ctx context.Context, customerID string) (*customer.CrmRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.crm[customerID]
	if !ok {
		return nil, customer.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (r *CustomerRepo) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.CustomerID] = *c
	return nil
}

func (r *CustomerRepo) CreateCrmRecord(ctx context.Context, rec *customer.CrmRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crm[rec.CustomerID] = *rec
	return nil
}
