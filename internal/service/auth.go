// Package service contains the authentication collaborators the login form
// submits to.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/metrics"
)

// AuthService verifies an identity and password.
//
// A Failure outcome and a non-nil error are both treated by the form as a
// failed login; callers must not rely on any other returned data.
type AuthService interface {
	Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error)
}

// DefaultSimulatedDelay is how long SimulatedAuthService takes to answer.
const DefaultSimulatedDelay = 600 * time.Millisecond

// SimulatedAuthService stands in for a real authentication backend. It waits
// for Delay and then reports Outcome for every identity.
type SimulatedAuthService struct {
	Delay   time.Duration
	Outcome domain.LoginOutcome
}

// NewSimulatedAuthService creates a simulated backend. An empty outcome means
// every login succeeds.
func NewSimulatedAuthService(delay time.Duration, outcome domain.LoginOutcome) *SimulatedAuthService {
	if outcome == "" {
		outcome = domain.LoginOutcomeSuccess
	}
	return &SimulatedAuthService{Delay: delay, Outcome: outcome}
}

// Login waits for the configured delay, then reports the configured outcome.
func (s *SimulatedAuthService) Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return domain.LoginOutcomeFailure, ctx.Err()
		case <-timer.C:
		}
	}
	return s.Outcome, nil
}

// timeoutAuthService bounds how long the wrapped service may take.
type timeoutAuthService struct {
	next    AuthService
	timeout time.Duration
}

// WithTimeout wraps next so each Login call is abandoned after timeout.
// A non-positive timeout returns next unchanged.
func WithTimeout(next AuthService, timeout time.Duration) AuthService {
	if timeout <= 0 {
		return next
	}
	return &timeoutAuthService{next: next, timeout: timeout}
}

func (s *timeoutAuthService) Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome, err := s.next.Login(ctx, identity, password)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return domain.LoginOutcomeFailure, domain.Timeout(err, "service.login", "authentication service did not respond in time")
	}
	return outcome, err
}

// instrumentedAuthService logs and records metrics for every login call.
type instrumentedAuthService struct {
	next   AuthService
	logger *slog.Logger
}

// Instrumented wraps next with structured logging and Prometheus metrics.
// Identities are masked and passwords are never logged.
func Instrumented(next AuthService, logger *slog.Logger) AuthService {
	return &instrumentedAuthService{next: next, logger: logger}
}

func (s *instrumentedAuthService) Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
	start := time.Now()
	outcome, err := s.next.Login(ctx, identity, password)
	duration := time.Since(start)

	label := string(outcome)
	if err != nil {
		label = "error"
	} else if label == "" {
		label = string(domain.LoginOutcomeFailure)
	}

	metrics.LoginSubmissionsTotal.WithLabelValues(label).Inc()
	metrics.LoginSubmissionDuration.Observe(duration.Seconds())

	attrs := []any{
		"identity", domain.MaskIdentity(identity),
		"outcome", label,
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		s.logger.Warn("login call failed", append(attrs, "error", err, "code", domain.ErrorCode(err))...)
	} else {
		s.logger.Info("login call completed", attrs...)
	}

	return outcome, err
}
