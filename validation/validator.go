package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema is implemented by every form in this package. Normalization runs before validation.
type Schema interface {
	normalize(s *sanitizer)
}

// Validator wraps the go-playground validator with the portal's custom rules
type Validator struct {
	validate  *validator.Validate
	sanitizer *sanitizer
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerCustomValidators(validate); err != nil {
		// The rules are static, so this only fails on a programming error.
		panic(fmt.Sprintf("[validation New] registering custom validators: %v", err))
	}

	// Report JSON field names so errors line up with form inputs
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:  validate,
		sanitizer: newSanitizer(),
	}
}

// Validate normalizes s in place and checks it. Every violation is reported in one *ValidationError.
func (v *Validator) Validate(s Schema) error {
	s.normalize(v.sanitizer)
	if err := v.validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return newValidationError(errs)
		}
		return fmt.Errorf("[Validator Validate] %w", err)
	}
	return nil
}

// ValidatePassword applies the password rule on its own, for live feedback while typing.
func (v *Validator) ValidatePassword(password string) error {
	if err := v.validate.Var(password, "min="+minPasswordLength); err != nil {
		return FieldErr("password", fmt.Sprintf("Password must be at least %s characters", minPasswordLength))
	}
	return nil
}

const minPasswordLength = "8"

func registerCustomValidators(validate *validator.Validate) error {
	// Tax ID (CNPJ): 14 digits once punctuation is stripped
	if err := validate.RegisterValidation("taxid", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return len(v) == 14 && isDigits(v)
	}); err != nil {
		return err
	}

	// Phone: area code plus an 8 or 9 digit number
	return validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return (len(v) == 10 || len(v) == 11) && isDigits(v)
	})
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
