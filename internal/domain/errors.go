package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("estado inválido para la operación")
	ErrStoreConflict     = errors.New("conflicto de concurrencia en el almacén")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// ValidationError rechaza una petición antes de abrir la transacción.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError construye un error de validación para un campo.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError indica que el movimiento dejaría el stock en negativo.
type InsufficientStockError struct {
	SKU       string
	BranchID  string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s en sucursal %s: disponible %d, solicitado %d",
		e.SKU, e.BranchID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError identifica el recurso que no existe.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError construye un NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError: el documento no está en el estado que exige la transición.
type InvalidStateError struct {
	Resource string
	ID       string
	Current  string
	Required string
}

// NewInvalidStateError construye un InvalidStateError.
func NewInvalidStateError(resource, id, current, required string) *InvalidStateError {
	return &InvalidStateError{Resource: resource, ID: id, Current: current, Required: required}
}

func (e *InvalidStateError) Error() string {
	if e.Required == "" {
		return fmt.Sprintf("%s %s está en estado %s", e.Resource, e.ID, e.Current)
	}
	return fmt.Sprintf("%s %s está en estado %s; se requiere %s", e.Resource, e.ID, e.Current, e.Required)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// StoreConflictError: el almacén agotó los reintentos por contención. El caller puede reintentar.
type StoreConflictError struct {
	Attempts int
	Err      error
}

func (e *StoreConflictError) Error() string {
	return fmt.Sprintf("no se pudo confirmar la transacción tras %d intentos: %v", e.Attempts, e.Err)
}

func (e *StoreConflictError) Unwrap() []error {
	return []error{ErrStoreConflict, e.Err}
}
