package payments

import (
	"errors"
	"fmt"

	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
	"github.com/imrishuroy/abc-church-payments/internal/transactions"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUpstreamAuth    = mpesa.ErrAuth
	ErrUpstreamRequest = mpesa.ErrRequest
	ErrForbidden       = errors.New("callback secret mismatch")
	ErrNotFound        = errors.New("transaction not found")
	ErrDuplicateKey    = transactions.ErrDuplicateKey
)

// ValidationError names the offending request field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// upstream makes sure err is classified as kind, keeping any provider payload.
func upstream(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return &mpesa.Error{Kind: kind, Err: err}
}
