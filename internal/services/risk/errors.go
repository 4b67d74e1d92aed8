package risk

import (
	"errors"
	"strings"

	"orus-risk/internal/utils/validation"
)

// Service errors
var (
	ErrInvalidDescriptor = errors.New("invalid transaction descriptor")
	ErrOracleUnavailable = errors.New("reputation oracle unavailable")
	ErrOracleTimeout     = errors.New("reputation oracle timeout")
	ErrBlacklistTimeout  = errors.New("ip blacklist timeout")
	ErrRecorderClosed    = errors.New("fraud check recorder closed")
	ErrInvalidPolicy     = errors.New("invalid risk policy")
)

// InvalidDescriptorError lists every field that failed validation.
type InvalidDescriptorError struct {
	Errors []validation.ValidationError
}

func (e *InvalidDescriptorError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return ErrInvalidDescriptor.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidDescriptorError) Unwrap() error {
	return ErrInvalidDescriptor
}
