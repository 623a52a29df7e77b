package persistence

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/msomdec/password-validator/internal/domain"
)

// Supported storage providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options selects the storage engine and its connection target.
type Options struct {
	Provider string `validate:"required,oneof=sqlite postgres"`
	DSN      string `validate:"required"`
}

// Validate reports malformed options as domain.ErrConfiguration.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if strings.TrimSpace(o.DSN) == "" {
		return fmt.Errorf("%w: connection target is blank", domain.ErrConfiguration)
	}
	return nil
}
