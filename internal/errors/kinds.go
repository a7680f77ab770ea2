package errors

import "fmt"

// AuthErrorKind classifies authentication failures for display.
type AuthErrorKind string

const (
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthEmailUnconfirmed   AuthErrorKind = "email_unconfirmed"
	AuthRecoveryInvalid    AuthErrorKind = "recovery_invalid"
	AuthSessionExpired     AuthErrorKind = "session_expired"
	AuthUnknown            AuthErrorKind = "unknown"
)

// AuthError is returned by the session gateway for every failed authentication or credential operation.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError with the default message for kind.
func NewAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Message: authMessages[kind], Err: err}
}

var authMessages = map[AuthErrorKind]string{
	AuthInvalidCredentials: "Incorrect email or password",
	AuthEmailUnconfirmed:   "Your email address has not been confirmed yet. Check your inbox for the confirmation link",
	AuthRecoveryInvalid:    "This reset link is invalid or has expired. Request a new one",
	AuthSessionExpired:     "Your session has expired. Sign in again",
	AuthUnknown:            "We could not sign you in. Please try again",
}

// AssociationError means an organization was created but could not be linked to its owner.
// The registration is partially complete and needs support or the reconciler to finish it.
type AssociationError struct {
	CompanyID  string
	IdentityID string
	Err        error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("organization %s created but not associated with identity %s: %v", e.CompanyID, e.IdentityID, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user.
func (e *AssociationError) Message() string {
	return "Your organization was created but we could not link it to your account. Please contact support"
}

// TransientError marks a failure worth retrying: timeouts, dropped connections and 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: temporary failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user once retries are exhausted.
func (e *TransientError) Message() string {
	return "The service is temporarily unavailable. Please try again"
}

// Transient wraps err as a TransientError. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}
