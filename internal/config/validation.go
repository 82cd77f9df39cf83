package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// Validate checks the parameters. The returned error is ValidationErrors.
func (p Params) Validate() error {
	var errs ValidationErrors

	errs.required("deployment_server", p.DeploymentServer)
	errs.required("username", p.Username)
	errs.required("password", p.Password)
	errs.required("server_class", p.ServerClass)

	if len(p.Clients) == 0 {
		errs.Add("clients", "must have at least one item")
	}
	for i, c := range p.Clients {
		if strings.TrimSpace(c) == "" {
			errs.Add(fmt.Sprintf("clients[%d]", i), "must not be empty")
		}
	}

	if p.Port <= 0 || p.Port > 65535 {
		errs.Add("port", "must be between 1 and 65535")
	}
	if p.Timeout <= 0 {
		errs.Add("timeout", "must be positive")
	}

	policy := p.Policy()
	if err := policy.OnExistenceError.Validate(); err != nil {
		errs.Add("on_existence_error", err.Error())
	}
	if err := policy.OnReloadError.Validate(); err != nil {
		errs.Add("on_reload_error", err.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
