// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{
		v: validator.New(),
	}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// IsEmail reports whether s is a syntactically valid email address.
func (val *Validator) IsEmail(s string) bool {
	return val.v.Var(s, "required,email") == nil
}

// IsCurrencyCode reports whether s is an ISO 4217 alphabetic code.
func (val *Validator) IsCurrencyCode(s string) bool {
	return val.v.Var(s, "iso4217") == nil
}

// FieldErrors flattens validation errors into field -> tag pairs for
// error response details. Non-validation errors yield nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			out[key] = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
			continue
		}
		out[key] = fe.Tag()
	}
	return out
}
