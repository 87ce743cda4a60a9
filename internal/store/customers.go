package store

import (
	"context"
	"fmt"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const customerColumns = "id, first_name, last_name, email, archived, created_at, updated_at"

// ListCustomers returns a page of unarchived customers
func (s *Store) ListCustomers(ctx context.Context, p models.ListParams) ([]models.Customer, int64, error) {
	return selectPage[models.Customer](ctx, s.q, "customers", customerColumns, "id",
		where(Customers.Visible("")), p)
}

// GetCustomer retrieves an unarchived customer by ID
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	query := s.q.Rebind("SELECT " + customerColumns + " FROM customers WHERE id = ? AND " + Customers.Visible(""))
	if err := sqlx.GetContext(ctx, s.q, &customer, query, id); err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

// CreateCustomer inserts a customer and fills its generated fields
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := s.q.Rebind(`
		INSERT INTO customers (first_name, last_name, email)
		VALUES (?, ?, ?)
		RETURNING id, archived, created_at, updated_at`)

	if err := sqlx.GetContext(ctx, s.q, c, query, c.FirstName, c.LastName, c.Email); err != nil {
		return fmt.Errorf("failed to create customer: %w", translateError(err))
	}
	return nil
}

// UpdateCustomer replaces the editable fields of an unarchived customer
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	query := s.q.Rebind(`
		UPDATE customers SET first_name = ?, last_name = ?, email = ?, updated_at = NOW()
		WHERE id = ? AND NOT archived
		RETURNING archived, created_at, updated_at`)

	if err := sqlx.GetContext(ctx, s.q, c, query, c.FirstName, c.LastName, c.Email, c.ID); err != nil {
		return fmt.Errorf("failed to update customer: %w", translateError(err))
	}
	return nil
}
