package registration

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-portal/validation"
)

type Step int

const (
	StepIdentity     Step = 1
	StepOrganization Step = 2
	StepComplete     Step = 3
)

// TotalSteps counts the steps that collect input.
const TotalSteps = 2

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepOrganization:
		return "organization"
	case StepComplete:
		return "complete"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Progress is the completed percentage shown above the form, clamped to [0, 100].
func Progress(current Step, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	if int(current) >= total {
		return 100
	}
	return int(current) * 100 / total
}

// IdentityDraft is what step one keeps between requests. Passwords are never part of it.
type IdentityDraft struct {
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// FormState travels with the browser in a signed cookie and is never stored server side.
type FormState struct {
	Identity     IdentityDraft                   `json:"identity"`
	Organization validation.RegisterOrganization `json:"organization"`
	CurrentStep  Step                            `json:"step"`
	TotalSteps   int                             `json:"total"`
	IdentityID   string                          `json:"identityId,omitempty"`
}

func NewFormState() FormState {
	return FormState{CurrentStep: StepIdentity, TotalSteps: TotalSteps}
}

func (s FormState) Progress() int {
	return Progress(s.CurrentStep, s.TotalSteps)
}

type stateClaims struct {
	State FormState `json:"state"`
	jwt.RegisteredClaims
}

// StateCodec signs form state into a compact token for the registration cookie.
type StateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewStateCodec(key []byte, ttl time.Duration) *StateCodec {
	return &StateCodec{key: key, ttl: ttl, now: time.Now}
}

func (c *StateCodec) Encode(state FormState) (string, error) {
	now := c.now()
	claims := stateClaims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[StateCodec Encode] signing: %w", err)
	}
	return signed, nil
}

// Decode verifies and expands a token produced by Encode.
func (c *StateCodec) Decode(token string) (FormState, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return FormState{}, fmt.Errorf("[StateCodec Decode] %w", err)
	}
	state := claims.State
	if state.CurrentStep < StepIdentity || state.CurrentStep > StepComplete {
		return FormState{}, fmt.Errorf("[StateCodec Decode] invalid step %d", state.CurrentStep)
	}
	state.TotalSteps = TotalSteps
	return state, nil
}
