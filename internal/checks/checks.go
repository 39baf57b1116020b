// Package checks implements the preflight checks run before a command
// changes the deployment, and the diagnostics results reported by
// health checks.
//
// A [Check] verifies one precondition. [RunPreflightChecks] runs a list of
// them in order and stops at the first failure, whose error carries the
// message shown to the user.
//
// Key types:
//   - [Check] is one precondition
//   - [FailedError] is returned for a failed check
//   - [DiagnosticsResult] is the outcome of a diagnostics check
package checks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"sunbeam/internal/output"
)

// Check verifies a precondition.
type Check interface {
	Name() string
	Description() string

	// Run returns nil when the check passes. The error message is shown to
	// the user as is.
	Run(ctx context.Context) error
}

// FailedError is returned by [RunPreflightChecks] for the first check that
// failed.
type FailedError struct {
	Check string
	Err   error
}

// Error returns the check's message.
func (e *FailedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the check error.
func (e *FailedError) Unwrap() error {
	return e.Err
}

// RunPreflightChecks runs checks in order and returns a [*FailedError] for
// the first one that fails.
func RunPreflightChecks(ctx context.Context, checks []Check, printer *output.Printer, logger zerolog.Logger) error {
	for _, c := range checks {
		logger.Debug().Str("check", c.Name()).Msg("Starting pre-flight check")
		status := printer.StartStatus(c.Description())
		err := c.Run(ctx)
		status.Stop()
		if err != nil {
			logger.Debug().Str("check", c.Name()).Err(err).Msg("Pre-flight check failed")
			return &FailedError{Check: c.Name(), Err: err}
		}
	}
	return nil
}

type base struct {
	name        string
	description string
}

func (b base) Name() string        { return b.name }
func (b base) Description() string { return b.description }

// BootstrapState tells whether bootstrap completed.
type BootstrapState interface {
	Bootstrapped() (bool, error)
}

// VerifyBootstrappedCheck fails until the deployment is bootstrapped.
type VerifyBootstrappedCheck struct {
	base
	state BootstrapState
}

// NewVerifyBootstrappedCheck creates a VerifyBootstrappedCheck.
func NewVerifyBootstrappedCheck(state BootstrapState) *VerifyBootstrappedCheck {
	return &VerifyBootstrappedCheck{
		base:  base{"Check bootstrapped", "Checking the deployment has been bootstrapped"},
		state: state,
	}
}

// Run implements [Check].
func (c *VerifyBootstrappedCheck) Run(context.Context) error {
	done, err := c.state.Bootstrapped()
	if err != nil {
		return err
	}
	if !done {
		return errors.New("Deployment not bootstrapped or bootstrap process has not " +
			"completed successfully. Please run `sunbeam cluster bootstrap`")
	}
	return nil
}

var fqdnLabel = regexp.MustCompile(`(?i)^[a-z0-9-]*$`)

// VerifyFQDNCheck validates a fully qualified domain name.
type VerifyFQDNCheck struct {
	base
	fqdn string
}

// NewVerifyFQDNCheck creates a VerifyFQDNCheck for fqdn.
func NewVerifyFQDNCheck(fqdn string) *VerifyFQDNCheck {
	return &VerifyFQDNCheck{base: base{"Check for FQDN", "Checking for FQDN"}, fqdn: fqdn}
}

// Run implements [Check].
func (c *VerifyFQDNCheck) Run(context.Context) error {
	if c.fqdn == "" {
		return errors.New("FQDN cannot be an empty string")
	}
	if len(c.fqdn) > 255 {
		return errors.New("A FQDN cannot be longer than 255 characters (trailing dot included)")
	}

	labels := strings.Split(c.fqdn, ".")
	if len(labels) == 1 {
		return errors.New("A FQDN must have at least one label and a trailing dot, or two labels separated by a dot")
	}
	if strings.HasSuffix(c.fqdn, ".") {
		labels = labels[:len(labels)-1]
	}

	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return errors.New("A label in a FQDN cannot be empty or longer than 63 characters")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return errors.New("A label in a FQDN cannot start or end with a hyphen (-)")
		}
		if !fqdnLabel.MatchString(label) {
			return errors.New("A label in a FQDN can only contain alphanumeric characters and hyphens (-)")
		}
	}
	return nil
}

// tokenFields must be present in a join token.
var tokenFields = []string{"fingerprint", "join_addresses", "secret"}

// TokenCheck validates the shape of a join token: base64 encoded JSON
// carrying a secret, a certificate fingerprint and join addresses.
type TokenCheck struct {
	base
	token string
}

// NewTokenCheck creates a TokenCheck for token.
func NewTokenCheck(token string) *TokenCheck {
	return &TokenCheck{base: base{"Check for valid join token", "Checking if join token looks valid"}, token: token}
}

// Run implements [Check].
func (c *TokenCheck) Run(context.Context) error {
	if c.token == "" {
		return errors.New("Join token cannot be an empty string")
	}
	data, err := base64.StdEncoding.DecodeString(c.token)
	if err != nil {
		return errors.New("Join token is not a valid base64 string")
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("Join token content is not a valid JSON-encoded object")
	}
	token, ok := raw.(map[string]any)
	if !ok {
		return errors.New("Join token content is not a valid JSON object")
	}

	var missing []string
	for _, field := range tokenFields {
		if _, ok := token[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("Join token does not contain the following required fields: %s", strings.Join(missing, ", "))
	}

	addresses, ok := token["join_addresses"].([]any)
	if !ok {
		return errors.New("Join token 'join_addresses' is not a list")
	}
	if len(addresses) == 0 {
		return errors.New("Join token 'join_addresses' is empty")
	}
	return nil
}

// JujuControllerRegistrationCheck fails when no account is registered for
// the controller in the juju data directory.
type JujuControllerRegistrationCheck struct {
	base
	controller string
	dataDir    string
}

// NewJujuControllerRegistrationCheck creates a check for controller, whose
// account file is <dataDir>/<controller>.yaml.
func NewJujuControllerRegistrationCheck(controller, dataDir string) *JujuControllerRegistrationCheck {
	return &JujuControllerRegistrationCheck{
		base:       base{"Check Juju Controller registration", "Checking if juju controller is registered"},
		controller: controller,
		dataDir:    dataDir,
	}
}

// Run implements [Check].
func (c *JujuControllerRegistrationCheck) Run(context.Context) error {
	if _, err := os.Stat(filepath.Join(c.dataDir, c.controller+".yaml")); err != nil {
		return fmt.Errorf("Juju controller %s is not registered.", c.controller)
	}
	return nil
}
