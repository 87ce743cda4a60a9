package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// CustomerInput is the body of customer create and update requests
type CustomerInput struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// CustomerService handles customer records
type CustomerService struct {
	repo   store.Repository
	logger *zap.Logger
}

var _ CrudService[models.Customer, CustomerInput] = (*CustomerService)(nil)

// NewCustomerService creates a new customer service
func NewCustomerService(repo store.Repository) *CustomerService {
	return &CustomerService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

func (s *CustomerService) GetAll(ctx context.Context, p models.ListParams) (*models.Results[models.Customer], error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.GetAll")
	defer span.End()

	customers, total, err := s.repo.ListCustomers(ctx, p)
	if err != nil {
		return nil, err
	}
	return results(customers, total), nil
}

func (s *CustomerService) GetOne(ctx context.Context, id int64) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.GetOne")
	defer span.End()

	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, translate(store.Customers, id, err)
	}
	return customer, nil
}

func (s *CustomerService) Create(ctx context.Context, in *CustomerInput) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Create")
	defer span.End()

	customer := &models.Customer{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, translate(store.Customers, nil, err)
	}

	s.logger.Info("Customer created", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id int64, in *CustomerInput) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Update")
	defer span.End()

	customer := &models.Customer{
		ID:        id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return nil, translate(store.Customers, id, err)
	}
	return customer, nil
}

// Destroy archives the customer
func (s *CustomerService) Destroy(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CustomerService.Destroy")
	defer span.End()

	if err := s.repo.Archive(ctx, store.Customers, id); err != nil {
		return translate(store.Customers, id, err)
	}

	s.logger.Info("Customer archived", zap.Int64("customer_id", id))
	return nil
}
