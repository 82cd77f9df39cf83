package reconciler

import (
	"context"
	"fmt"

	"dsclients/internal/deployment"
)

// Service is the subset of the deployment server API the reconciler drives.
// *deployment.Client satisfies it.
type Service interface {
	Login(ctx context.Context, creds deployment.Credentials) (deployment.Session, error)
	ServerClassExists(ctx context.Context, session deployment.Session, name string) (deployment.Existence, error)
	WhitelistSize(ctx context.Context, session deployment.Session, name string) (int, error)
	WriteServerClass(ctx context.Context, session deployment.Session, req deployment.WriteRequest) error
	Reload(ctx context.Context, session deployment.Session, name string) error
}

// Request carries everything one invocation needs.
type Request struct {
	Credentials deployment.Credentials
	ServerClass string
	Clients     []string
	// CheckMode authenticates and returns the initial result without touching the server class.
	CheckMode bool
}

// ExistenceErrorPolicy decides what happens when the existence check cannot give an answer.
type ExistenceErrorPolicy string

const (
	// ExistenceErrorAbort fails the invocation.
	ExistenceErrorAbort ExistenceErrorPolicy = "abort"
	// ExistenceErrorAssumeMissing treats an unknown answer as "does not exist" and creates the class.
	ExistenceErrorAssumeMissing ExistenceErrorPolicy = "assume-missing"
)

// ReloadErrorPolicy decides whether a failed reload fails the invocation.
type ReloadErrorPolicy string

const (
	// ReloadErrorFail reports the invocation as failed.
	ReloadErrorFail ReloadErrorPolicy = "fail"
	// ReloadErrorIgnore logs a warning and still reports success.
	ReloadErrorIgnore ReloadErrorPolicy = "ignore"
)

// Policy groups the configurable failure behaviour.
type Policy struct {
	OnExistenceError ExistenceErrorPolicy
	OnReloadError    ReloadErrorPolicy
}

// DefaultPolicy aborts on an unknown existence answer and fails on reload errors.
func DefaultPolicy() Policy {
	return Policy{
		OnExistenceError: ExistenceErrorAbort,
		OnReloadError:    ReloadErrorFail,
	}
}

// Validate checks the policy value.
func (p ExistenceErrorPolicy) Validate() error {
	switch p {
	case ExistenceErrorAbort, ExistenceErrorAssumeMissing:
		return nil
	default:
		return fmt.Errorf("unknown existence error policy %q, want %s or %s", p, ExistenceErrorAbort, ExistenceErrorAssumeMissing)
	}
}

// Validate checks the policy value.
func (p ReloadErrorPolicy) Validate() error {
	switch p {
	case ReloadErrorFail, ReloadErrorIgnore:
		return nil
	default:
		return fmt.Errorf("unknown reload error policy %q, want %s or %s", p, ReloadErrorFail, ReloadErrorIgnore)
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if err := p.OnExistenceError.Validate(); err != nil {
		return err
	}
	return p.OnReloadError.Validate()
}

// Step names a stage of the reconciliation.
type Step string

const (
	StepAuthenticate Step = "authenticate"
	StepCheckExists  Step = "check-exists"
	StepCreate       Step = "create"
	StepReadCount    Step = "read-count"
	StepUpdate       Step = "update"
	StepReload       Step = "reload"
)

// StepRecord is one completed or failed step.
type StepRecord struct {
	Step   Step   `json:"step" yaml:"step"`
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Result is the structured outcome handed back to the host framework.
// Field names follow the Ansible module return contract.
type Result struct {
	Changed         bool   `json:"changed" yaml:"changed"`
	OriginalMessage string `json:"original_message" yaml:"original_message"`
	Message         string `json:"message" yaml:"message"`

	Failed bool   `json:"failed,omitempty" yaml:"failed,omitempty"`
	Msg    string `json:"msg,omitempty" yaml:"msg,omitempty"`
	// ErrorKind is the deployment error kind of the failure, e.g. "AuthenticationError".
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	// Cause is the full error text of the failure.
	Cause string `json:"cause,omitempty" yaml:"cause,omitempty"`
	// FailedStep is the step that failed.
	FailedStep Step `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`

	InvocationID string `json:"invocation_id,omitempty" yaml:"invocation_id,omitempty"`
	ServerClass  string `json:"server_class,omitempty" yaml:"server_class,omitempty"`
	// Created is true when the server class did not exist and was created.
	Created bool `json:"created,omitempty" yaml:"created,omitempty"`
	// StartIndex is the first whitelist index written. Omitted until a write succeeded.
	StartIndex int `json:"start_index,omitempty" yaml:"start_index,omitempty"`
	// Added is the number of whitelist entries written.
	Added int `json:"added,omitempty" yaml:"added,omitempty"`
	// ReloadWarning is set when a reload failure was ignored by policy.
	ReloadWarning string `json:"reload_warning,omitempty" yaml:"reload_warning,omitempty"`

	Steps []StepRecord `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Err returns nil for a successful result and an error describing the failure otherwise.
func (r Result) Err() error {
	if !r.Failed {
		return nil
	}
	return &FailedError{Result: r}
}

// FailedError wraps a failed Result so callers can pick an exit code.
type FailedError struct {
	Result Result
}

func (e *FailedError) Error() string {
	return e.Result.Msg
}
