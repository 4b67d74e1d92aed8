package validation

import (
	"fmt"
	"net/netip"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	Errors []ValidationError
}

func New() *Validator {
	return &Validator{
		Errors: make([]ValidationError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required records an error when value is blank.
func (v *Validator) Required(value, field string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength records an error when value is longer than max bytes.
func (v *Validator) MaxLength(value string, max int, field string) {
	v.Check(len(value) <= max, field, fmt.Sprintf("must be at most %d characters", max))
}

// IP records an error unless value parses as an IPv4 or IPv6 address.
func (v *Validator) IP(value, field string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return
	}
	v.Check(IsIP(value), field, "must be a valid IP address")
}

// IsIP reports whether s is a literal IPv4 or IPv6 address.
func IsIP(s string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil
}

// NormalizeIP returns the canonical text form of an address, or s unchanged
// when it does not parse.
func NormalizeIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return addr.Unmap().String()
}
