package customer

import "context"

type Repository interface {
	GetByCustomerID(ctx context.Context, customerID string) (*Customer, error)
	GetCrmRecord(ctx context.Context, customerID string) (*CrmRecord, error)
	CreateCustomer(ctx context.Context, c *Customer) error
	CreateCrmRecord(ctx context.Context, r *CrmRecord) error
}
