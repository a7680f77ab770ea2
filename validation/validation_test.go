package validation_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/stretchr/testify/require"
)

func requireFieldErrors(t *testing.T, err error) *validation.ValidationError {
	t.Helper()
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
	return verr
}

func TestLogin(t *testing.T) {
	v := validation.New()

	t.Run("valid and normalized", func(t *testing.T) {
		in := validation.Login{Email: "  Ada@Example.COM ", Password: "x"}
		require.NoError(t, v.Validate(&in))
		require.Equal(t, "ada@example.com", in.Email)
	})

	t.Run("reports every violation", func(t *testing.T) {
		in := validation.Login{Email: "not-an-email"}
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Len(t, verr.Fields, 2)
		require.Equal(t, "Enter a valid email address", verr.Get("email"))
		require.Equal(t, "Password is required", verr.Get("password"))
	})
}

func TestRegisterIdentity(t *testing.T) {
	v := validation.New()
	valid := func() validation.RegisterIdentity {
		return validation.RegisterIdentity{
			Email:           "ada@example.com",
			Password:        "s3cretpass",
			ConfirmPassword: "s3cretpass",
			FullName:        "Ada Lovelace",
			Phone:           "(11) 98765-4321",
		}
	}

	t.Run("valid", func(t *testing.T) {
		in := valid()
		require.NoError(t, v.Validate(&in))
		require.Equal(t, "11987654321", in.Phone)
	})

	t.Run("mismatched confirmation is attached to confirmPassword", func(t *testing.T) {
		in := valid()
		in.ConfirmPassword = "different1"
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Equal(t, map[string]string{"confirmPassword": "Passwords do not match"}, verr.Map())
	})

	t.Run("short password and name", func(t *testing.T) {
		in := valid()
		in.Password, in.ConfirmPassword, in.FullName = "short", "short", "Al"
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Equal(t, "Password must be at least 8 characters", verr.Get("password"))
		require.Equal(t, "Full name must be at least 3 characters", verr.Get("fullName"))
	})

	t.Run("markup is stripped from the name", func(t *testing.T) {
		in := valid()
		in.FullName = "<b>Ada</b>   Lovelace & Co"
		require.NoError(t, v.Validate(&in))
		require.Equal(t, "Ada Lovelace & Co", in.FullName)
	})

	t.Run("phone is optional but checked when present", func(t *testing.T) {
		in := valid()
		in.Phone = ""
		require.NoError(t, v.Validate(&in))

		in.Phone = "123"
		verr := requireFieldErrors(t, v.Validate(&in))
		require.NotEmpty(t, verr.Get("phone"))
	})
}

func TestRegisterOrganization(t *testing.T) {
	v := validation.New()

	t.Run("optional fields may be empty", func(t *testing.T) {
		in := validation.RegisterOrganization{Name: "Acme"}
		require.NoError(t, v.Validate(&in))
	})

	t.Run("normalizes domain and tax id", func(t *testing.T) {
		in := validation.RegisterOrganization{Name: "Acme", Domain: "https://www.Acme.com/", TaxID: "12.345.678/0001-90"}
		require.NoError(t, v.Validate(&in))
		require.Equal(t, "acme.com", in.Domain)
		require.Equal(t, "12345678000190", in.TaxID)
	})

	t.Run("invalid values", func(t *testing.T) {
		in := validation.RegisterOrganization{Name: "A", Domain: "not a domain", TaxID: "123"}
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Len(t, verr.Fields, 3)
		require.Equal(t, "Tax ID must have 14 digits", verr.Get("taxId"))
	})
}

func TestChangePassword(t *testing.T) {
	v := validation.New()

	t.Run("new password equal to current is rejected on newPassword", func(t *testing.T) {
		in := validation.ChangePassword{CurrentPassword: "oldpassword", NewPassword: "oldpassword", ConfirmPassword: "oldpassword"}
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Equal(t, map[string]string{"newPassword": "New password must be different from the current password"}, verr.Map())
	})

	t.Run("confirmation mismatch is rejected on confirmPassword", func(t *testing.T) {
		in := validation.ChangePassword{CurrentPassword: "oldpassword", NewPassword: "newpassword", ConfirmPassword: "otherpassword"}
		verr := requireFieldErrors(t, v.Validate(&in))
		require.Equal(t, map[string]string{"confirmPassword": "Passwords do not match"}, verr.Map())
	})

	t.Run("valid", func(t *testing.T) {
		in := validation.ChangePassword{CurrentPassword: "oldpassword", NewPassword: "newpassword", ConfirmPassword: "newpassword"}
		require.NoError(t, v.Validate(&in))
	})
}

func TestNewPasswordAndResetRequest(t *testing.T) {
	v := validation.New()

	np := validation.NewPassword{Password: "newpassword", ConfirmPassword: "newpasswort"}
	verr := requireFieldErrors(t, v.Validate(&np))
	require.Equal(t, "Passwords do not match", verr.Get("confirmPassword"))

	req := validation.PasswordResetRequest{Email: " ADA@example.com"}
	require.NoError(t, v.Validate(&req))
	require.Equal(t, "ada@example.com", req.Email)

	require.Error(t, v.ValidatePassword("short"))
	require.NoError(t, v.ValidatePassword("longenough"))
}

func TestParsePeriod(t *testing.T) {
	v := validation.New()

	p, err := v.ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, validation.PeriodLastWeek, p)

	p, err = v.ParsePeriod("LAST_MONTH")
	require.NoError(t, err)
	require.Equal(t, validation.PeriodLastMonth, p)
	require.Equal(t, "Last 30 days", p.Label())

	_, err = v.ParsePeriod("fortnight")
	verr := requireFieldErrors(t, err)
	require.Contains(t, verr.Get("period"), "last_week")
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "12.345.678/0001-90", validation.FormatTaxID("12345678000190"))
	require.Equal(t, "123", validation.FormatTaxID("123"))
	require.Equal(t, "(11) 98765-4321", validation.FormatPhone("11987654321"))
	require.Equal(t, "(11) 3456-7890", validation.FormatPhone("1134567890"))
	require.Equal(t, "12345678000190", validation.Digits("12.345.678/0001-90"))
}
