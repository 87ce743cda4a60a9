package service

import (
	"context"
	"errors"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/store"
)

// CrudService is the contract shared by the plain entity services
type CrudService[T any, In any] interface {
	GetAll(ctx context.Context, p models.ListParams) (*models.Results[T], error)
	GetOne(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in *In) (*T, error)
	Update(ctx context.Context, id int64, in *In) (*T, error)
	Destroy(ctx context.Context, id int64) error
}

// translate maps store errors onto the apperr kinds the HTTP layer understands
func translate(e store.Entity, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(e.Name, id)
	}

	var ce *store.ConstraintError
	if errors.As(err, &ce) {
		return apperr.WrapValidation(err, ce.Message)
	}
	return err
}

func results[T any](data []T, total int64) *models.Results[T] {
	if data == nil {
		data = []T{}
	}
	return &models.Results[T]{Total: total, Data: data}
}
