package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when no visible row matches.
var ErrNotFound = errors.New("record not found")

// ErrNotArchivable is returned when Archive is called for an entity without an archived flag.
var ErrNotArchivable = errors.New("entity is not archivable")

// Postgres error codes surfaced as constraint violations.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeCheckViolation      = "23514"
	CodeInvalidText         = "22P02"
)

// ConstraintError is a write rejected by a database constraint
type ConstraintError struct {
	Code       string
	Constraint string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

func uniqueViolation(constraint string) error {
	return &ConstraintError{
		Code:       CodeUniqueViolation,
		Constraint: constraint,
		Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
	}
}

func foreignKeyViolation(constraint string) error {
	return &ConstraintError{
		Code:       CodeForeignKeyViolation,
		Constraint: constraint,
		Message:    fmt.Sprintf("insert or update violates foreign key constraint %q", constraint),
	}
}

// translateError maps driver errors onto ErrNotFound and ConstraintError
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case CodeUniqueViolation, CodeForeignKeyViolation, CodeNotNullViolation,
			CodeCheckViolation, CodeInvalidText:
			msg := pqErr.Message
			if pqErr.Detail != "" {
				msg = msg + ": " + pqErr.Detail
			}
			return &ConstraintError{
				Code:       string(pqErr.Code),
				Constraint: pqErr.Constraint,
				Message:    msg,
				Err:        err,
			}
		}
	}
	return err
}
