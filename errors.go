package atas

import (
	"errors"

	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
)

// Exported errors for library consumers.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = domain.ErrNotFound

	// ErrValidation indicates a validation error.
	ErrValidation = domain.ErrValidation

	// ErrConflict indicates a conflict with existing data.
	ErrConflict = domain.ErrConflict

	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("atas: no database configured")

	// ErrNoJWTSecret indicates token signing has no key.
	ErrNoJWTSecret = errors.New("atas: no JWT secret configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed
)
