package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"dsclients/internal/deployment"
	"dsclients/pkg/logging"
)

const (
	// SuccessMessage is the fixed message of a completed run.
	SuccessMessage = "Good job!"
	// FailureMessage prefixes Result.Msg on failure.
	FailureMessage = "Request failed"

	originalMessagePrefix = "Clients added to following server class: "

	kindInvalidRequest = "InvalidRequest"
)

// OriginalMessage returns the summary naming the target server class.
func OriginalMessage(serverClass string) string {
	return originalMessagePrefix + serverClass
}

// Reconciler appends clients to a server class whitelist and reloads it.
// It keeps no per-invocation state; Run may be called repeatedly.
type Reconciler struct {
	svc    Service
	policy Policy
	newID  func() string
	logger *slog.Logger
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithPolicy sets the failure policy.
func WithPolicy(p Policy) Option {
	return func(r *Reconciler) {
		r.policy = p
	}
}

// WithIDGenerator replaces the invocation ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Reconciler) {
		r.newID = gen
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New creates a Reconciler driving svc.
func New(svc Service, opts ...Option) *Reconciler {
	r := &Reconciler{
		svc:    svc,
		policy: DefaultPolicy(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Logger("Reconciler")
	}
	return r
}

// Run performs one reconciliation:
//
//	Authenticate → CheckExists → {Create | ReadCount → Update} → Reload
//
// It stops at the first failure. Nothing already written is rolled back.
// In check mode it returns right after authenticating.
func (r *Reconciler) Run(ctx context.Context, req Request) Result {
	id := r.newID()
	log := r.logger.With("invocation_id", id, "serverclass", req.ServerClass)

	result := Result{InvocationID: id, ServerClass: req.ServerClass}

	if err := r.policy.Validate(); err != nil {
		return r.invalid(log, result, err)
	}
	if err := validateRequest(req); err != nil {
		return r.invalid(log, result, err)
	}

	session, err := r.svc.Login(ctx, req.Credentials)
	if err != nil {
		return r.fail(log, result, StepAuthenticate, err)
	}
	result.record(StepAuthenticate, true, "")

	if req.CheckMode {
		log.Info("Check mode, not touching the server class")
		return result
	}

	result.Changed = true
	result.OriginalMessage = OriginalMessage(req.ServerClass)
	result.Message = SuccessMessage

	existence, err := r.svc.ServerClassExists(ctx, session, req.ServerClass)
	if err != nil {
		if r.policy.OnExistenceError != ExistenceErrorAssumeMissing {
			return r.fail(log, result, StepCheckExists, err)
		}
		log.Warn("Existence check failed, assuming the server class is missing", "error", err)
		existence = deployment.ExistenceAbsent
	}
	result.record(StepCheckExists, true, existence.String())

	write := deployment.WriteRequest{
		Create:  existence != deployment.ExistencePresent,
		Name:    req.ServerClass,
		Clients: req.Clients,
	}

	writeStep := StepCreate
	if !write.Create {
		writeStep = StepUpdate

		size, err := r.svc.WhitelistSize(ctx, session, req.ServerClass)
		if err != nil {
			return r.fail(log, result, StepReadCount, err)
		}
		write.Start = size
		result.record(StepReadCount, true, fmt.Sprintf("whitelist-size=%d", size))
	}

	if err := r.svc.WriteServerClass(ctx, session, write); err != nil {
		return r.fail(log, result, writeStep, err)
	}
	result.Created = write.Create
	result.StartIndex = write.Start
	result.Added = len(write.Clients)
	result.record(writeStep, true, fmt.Sprintf("whitelist.%d..whitelist.%d", write.Start, write.Start+len(write.Clients)-1))

	if err := r.svc.Reload(ctx, session, req.ServerClass); err != nil {
		if r.policy.OnReloadError != ReloadErrorIgnore {
			return r.fail(log, result, StepReload, err)
		}
		log.Warn("Reload failed, ignored by policy", "error", err)
		result.ReloadWarning = err.Error()
		result.record(StepReload, false, err.Error())
		return result
	}
	result.record(StepReload, true, "")

	log.Info("Server class reconciled", "created", result.Created, "start", result.StartIndex, "added", result.Added)
	return result
}

func (res *Result) record(step Step, ok bool, detail string) {
	res.Steps = append(res.Steps, StepRecord{Step: step, OK: ok, Detail: detail})
}

func (r *Reconciler) fail(log *slog.Logger, result Result, step Step, err error) Result {
	result.Failed = true
	result.FailedStep = step
	result.ErrorKind = deployment.KindOf(err).String()
	result.Cause = err.Error()
	result.Msg = fmt.Sprintf("%s: %s failed: %s", FailureMessage, step, result.ErrorKind)
	result.record(step, false, err.Error())

	log.Error("Reconciliation failed", "step", step, "kind", result.ErrorKind, "error", err)
	return result
}

func (r *Reconciler) invalid(log *slog.Logger, result Result, err error) Result {
	log.Error("Invalid request", "error", err)
	return invalidResult(result, err)
}

// InvalidResult returns the failed result reported when a run cannot start,
// e.g. because its parameters do not validate.
func InvalidResult(serverClass string, err error) Result {
	return invalidResult(Result{ServerClass: serverClass}, err)
}

func invalidResult(result Result, err error) Result {
	result.Failed = true
	result.ErrorKind = kindInvalidRequest
	result.Cause = err.Error()
	result.Msg = fmt.Sprintf("%s: %s", FailureMessage, err)
	return result
}

func validateRequest(req Request) error {
	var problems []string
	if strings.TrimSpace(req.ServerClass) == "" {
		problems = append(problems, "server class is required")
	}
	if len(req.Clients) == 0 {
		problems = append(problems, "at least one client is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
