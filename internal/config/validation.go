package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the cross-field ranges tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	if err := ValidateStaleness(c.Engine.StatusTimeout, "status"); err != nil {
		return err
	}
	if err := ValidateStaleness(c.Engine.CompletionTimeout, "completion"); err != nil {
		return err
	}
	if err := ValidateConcurrency(c.Engine.Concurrency, "engine"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.Storage.Timeout, "storage"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.StatusStore.Timeout, "status store"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.Queue.Timeout, "queue"); err != nil {
		return err
	}
	if c.Engine.Interval < time.Second {
		return fmt.Errorf("engine interval too small (min 1s)")
	}
	if c.StatusStore.Backend == BackendNone && c.Queue.Backend == BackendNone {
		return fmt.Errorf("at least one status channel (status_store or queue) must be enabled")
	}
	return nil
}

// ValidateTimeout validates timeout duration
func ValidateTimeout(timeout time.Duration, name string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s timeout must be positive", name)
	}
	if timeout > 30*time.Minute {
		return fmt.Errorf("%s timeout too large (max 30 minutes)", name)
	}
	return nil
}

// ValidateStaleness validates a business timeout measured in hours.
func ValidateStaleness(timeout time.Duration, name string) error {
	if timeout < time.Minute {
		return fmt.Errorf("%s timeout too small (min 1 minute)", name)
	}
	if timeout > 30*24*time.Hour {
		return fmt.Errorf("%s timeout too large (max 30 days)", name)
	}
	return nil
}

// ValidateConcurrency validates concurrency setting
func ValidateConcurrency(concurrency int, name string) error {
	if concurrency <= 0 {
		return fmt.Errorf("%s concurrency must be positive", name)
	}
	if concurrency > 100 {
		return fmt.Errorf("%s concurrency too high (max 100)", name)
	}
	return nil
}
