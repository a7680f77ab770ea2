package config

import (
	"errors"
	"fmt"
	"slices"
)

// devEnvironments may run on the built-in signing keys.
var devEnvironments = []string{"DEV", "TEST"}

// Validate rejects settings that are only safe on a developer machine: outside DEV and TEST the signing
// keys must be set explicitly.
func Validate(c Config) error {
	env := c.GetEnv()
	if slices.Contains(devEnvironments, env) {
		return nil
	}

	var errs []error
	if string(c.GetFormStateKey()) == defaultFormStateKey {
		errs = append(errs, fmt.Errorf("FORM_STATE_KEY must be set when ENV is %s", env))
	}
	if c.GetIdentityProvider() == IdentityProviderLocal && string(c.GetLocalSigningKey()) == defaultLocalSigningKey {
		errs = append(errs, fmt.Errorf("LOCAL_SIGNING_KEY must be set when ENV is %s", env))
	}
	if len(errs) > 0 {
		return fmt.Errorf("[config Validate] %w", errors.Join(errs...))
	}
	return nil
}
