package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one violation attached to a form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a submission, in field order.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// Get returns the first message for field, or "".
func (e *ValidationError) Get(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Map indexes messages by field for templates.
func (e *ValidationError) Map() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}

// FieldErr builds a single-field ValidationError.
func FieldErr(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

var fieldLabels = map[string]string{
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Password confirmation",
	"currentPassword": "Current password",
	"newPassword":     "New password",
	"fullName":        "Full name",
	"phone":           "Phone",
	"name":            "Organization name",
	"domain":          "Domain",
	"taxId":           "Tax ID",
	"period":          "Period",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make([]FieldError, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		fields = append(fields, FieldError{Field: field, Message: message(field, err)})
	}
	return &ValidationError{Fields: fields}
}

func message(field string, err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label(field))
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label(field), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label(field), err.Param())
	case "eqfield":
		return "Passwords do not match"
	case "nefield":
		return "New password must be different from the current password"
	case "fqdn":
		return "Enter a valid domain, for example example.com"
	case "taxid":
		return "Tax ID must have 14 digits"
	case "phone":
		return "Enter a valid phone number including the area code"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label(field), strings.ReplaceAll(err.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", label(field))
	}
}
