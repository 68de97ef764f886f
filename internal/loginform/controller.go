package loginform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/metrics"
	"github.com/DukeRupert/pakipark/internal/service"
	"github.com/google/uuid"
)

// Observer receives a snapshot of the form after every change. Observers run
// synchronously, in registration order, and must not call the controller's
// mutating methods.
type Observer func(FormState)

// Controller owns one mounted login form.
//
// All state changes go through its methods. Each method runs to completion;
// the only thing that happens later is the resolution of a login submission,
// which arrives on its own goroutine.
type Controller struct {
	auth        service.AuthService
	logger      *slog.Logger
	countryCode string

	// notifyMu keeps observer notifications in the same order as the
	// changes that produced them.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     FormState
	observers []Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for submission events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithCountryCode overrides the default country code of a fresh form.
func WithCountryCode(code string) Option {
	return func(c *Controller) {
		c.countryCode = code
	}
}

// WithObserver registers an observer before the controller is returned.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// New mounts a form backed by auth.
func New(auth service.AuthService, opts ...Option) *Controller {
	c := &Controller{
		auth:        auth,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		countryCode: DefaultCountryCode,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = NewFormState(c.countryCode)
	return c
}

// State returns a snapshot of the form.
func (c *Controller) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe registers o to be called after every state change.
func (c *Controller) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// update applies fn under the state lock and then notifies observers with
// the resulting snapshot.
func (c *Controller) update(fn func(s *FormState)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o(snapshot)
	}
}

// SetIdentityMode switches between phone and email login and clears any
// feedback. Setting the current mode again only clears feedback.
func (c *Controller) SetIdentityMode(mode domain.IdentityMode) error {
	if !mode.Valid() {
		return domain.Invalid("loginform.set_identity_mode", fmt.Sprintf("unknown identity mode %q", mode))
	}
	c.update(func(s *FormState) {
		s.IdentityMode = mode
		s.Feedback = Feedback{}
	})
	return nil
}

// UpdateField stores value verbatim. Typing dismisses any feedback.
func (c *Controller) UpdateField(field Field, value string) error {
	var known bool
	c.update(func(s *FormState) {
		known = s.set(field, value)
		if known && s.Feedback.Message != "" {
			s.Feedback = Feedback{}
		}
	})
	if !known {
		return domain.Invalid("loginform.update_field", fmt.Sprintf("unknown field %q", field))
	}
	return nil
}

// TogglePasswordVisibility shows or hides the password.
func (c *Controller) TogglePasswordVisibility() {
	c.update(func(s *FormState) {
		s.PasswordVisible = !s.PasswordVisible
	})
}

// Submit validates the form and, if every check passes, starts a login call.
//
// A validation failure is written to the form's feedback and returned as a
// *FormError; the auth service is not called. While a previous submission is
// unresolved Submit returns ErrSubmissionInFlight and changes nothing.
//
// The login call is detached from ctx cancellation: once started it always
// runs to resolution. Values carried by ctx are kept.
func (c *Controller) Submit(ctx context.Context) (*Submission, error) {
	var (
		result   ValidationResult
		password string
		busy     bool
	)

	c.update(func(s *FormState) {
		if s.Submitting {
			busy = true
			return
		}
		result = Validate(*s)
		if !result.Valid() {
			s.Feedback = errorFeedback(result.Err.Message)
			return
		}
		password = s.Password
		s.Submitting = true
		s.Feedback = Feedback{}
	})

	if busy {
		return nil, ErrSubmissionInFlight
	}
	if !result.Valid() {
		metrics.ValidationFailed(string(result.Err.Reason))
		c.logger.Debug("login form rejected", "reason", result.Err.Reason)
		return nil, result.Err
	}

	sub := &Submission{
		ID:   uuid.New(),
		done: make(chan struct{}),
	}
	c.logger.Debug("login submission started",
		"attempt_id", sub.ID,
		"identity", domain.MaskIdentity(result.Identity),
	)

	metrics.SubmissionStarted()
	go c.resolve(context.WithoutCancel(ctx), sub, result.Identity, password)

	return sub, nil
}

func (c *Controller) resolve(ctx context.Context, sub *Submission, identity, password string) {
	defer metrics.SubmissionResolved()

	outcome, err := c.login(ctx, identity, password)

	var (
		feedback Feedback
		failure  *FormError
	)
	switch {
	case err != nil:
		failure = submissionFailed(err)
	case outcome != domain.LoginOutcomeSuccess:
		failure = submissionFailed(domain.Unauthorized("loginform.submit", "login rejected"))
	}

	if failure != nil {
		feedback = errorFeedback(failure.Message)
		c.logger.Info("login submission failed",
			"attempt_id", sub.ID,
			"code", domain.ErrorCode(failure.Err),
			"error", failure.Err,
		)
	} else {
		feedback = successFeedback(MsgLoginSucceeded)
		c.logger.Info("login submission succeeded", "attempt_id", sub.ID)
	}

	c.update(func(s *FormState) {
		s.Submitting = false
		s.Feedback = feedback
	})

	sub.feedback = feedback
	if failure != nil {
		sub.err = failure
	}
	close(sub.done)
}

// login calls the auth service, turning a panic into an error so the form
// never stays stuck in the submitting state.
func (c *Controller) login(ctx context.Context, identity, password string) (outcome domain.LoginOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.LoginOutcomeFailure
			err = domain.Internal(fmt.Errorf("panic: %v", r), "loginform.submit", "authentication service panicked")
		}
	}()
	return c.auth.Login(ctx, identity, password)
}

// Submission is a login call that has been started by Submit.
type Submission struct {
	// ID identifies the attempt in logs.
	ID uuid.UUID

	done     chan struct{}
	feedback Feedback
	err      error
}

// Done is closed once the submission has resolved and the form has been
// updated.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission resolves or ctx is done. It returns the
// feedback written to the form and, for a failed login, a *FormError with
// ReasonSubmissionFailed.
func (s *Submission) Wait(ctx context.Context) (Feedback, error) {
	select {
	case <-s.done:
		return s.feedback, s.err
	case <-ctx.Done():
		return Feedback{}, ctx.Err()
	}
}
