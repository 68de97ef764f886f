package loginform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock AuthService
// =============================================================================

type mockAuthService struct {
	LoginFunc func(ctx context.Context, identity, password string) (domain.LoginOutcome, error)

	mu    sync.Mutex
	calls []loginCall
}

type loginCall struct {
	Identity string
	Password string
}

func (m *mockAuthService) Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, loginCall{Identity: identity, Password: password})
	m.mu.Unlock()

	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identity, password)
	}
	return domain.LoginOutcomeSuccess, nil
}

func (m *mockAuthService) Calls() []loginCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]loginCall(nil), m.calls...)
}

// gatedAuthService blocks every login until release is closed.
func gatedAuthService(outcome domain.LoginOutcome, err error) (*mockAuthService, chan struct{}) {
	release := make(chan struct{})
	return &mockAuthService{
		LoginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
			<-release
			return outcome, err
		},
	}, release
}

func fill(t *testing.T, c *Controller, values map[Field]string) {
	t.Helper()
	for f, v := range values {
		require.NoError(t, c.UpdateField(f, v))
	}
}

func waitFor(t *testing.T, sub *Submission) (Feedback, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	fb, err := sub.Wait(ctx)
	require.NoError(t, ctx.Err(), "submission did not resolve")
	return fb, err
}

// =============================================================================
// Mount and field edits
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	c := New(&mockAuthService{})

	s := c.State()
	assert.Equal(t, domain.IdentityModePhone, s.IdentityMode)
	assert.Equal(t, "+63", s.CountryCode)
	assert.Empty(t, s.Phone)
	assert.Empty(t, s.Email)
	assert.Empty(t, s.Password)
	assert.False(t, s.PasswordVisible)
	assert.False(t, s.Submitting)
	assert.True(t, s.Feedback.IsZero())
}

func TestNew_WithCountryCode(t *testing.T) {
	c := New(&mockAuthService{}, WithCountryCode("+1"))
	assert.Equal(t, "+1", c.State().CountryCode)
}

func TestUpdateField_StoresVerbatim(t *testing.T) {
	c := New(&mockAuthService{})

	require.NoError(t, c.UpdateField(FieldPhone, " 912 345 "))
	require.NoError(t, c.UpdateField(FieldEmail, " A@B.com "))
	require.NoError(t, c.UpdateField(FieldPassword, "  pw  "))
	require.NoError(t, c.UpdateField(FieldCountryCode, "+1"))

	s := c.State()
	assert.Equal(t, " 912 345 ", s.Phone)
	assert.Equal(t, " A@B.com ", s.Email)
	assert.Equal(t, "  pw  ", s.Password)
	assert.Equal(t, "+1", s.CountryCode)
}

func TestUpdateField_UnknownField(t *testing.T) {
	c := New(&mockAuthService{})
	before := c.State()

	err := c.UpdateField(Field("username"), "juan")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, before, c.State())
}

func TestUpdateField_Idempotent(t *testing.T) {
	c := New(&mockAuthService{})

	require.NoError(t, c.UpdateField(FieldEmail, "a@b.com"))
	first := c.State()
	require.NoError(t, c.UpdateField(FieldEmail, "a@b.com"))
	assert.Equal(t, first, c.State())
}

func TestUpdateField_ClearsFeedback(t *testing.T) {
	c := New(&mockAuthService{})

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, FeedbackError, c.State().Feedback.Kind)

	require.NoError(t, c.UpdateField(FieldPhone, "9"))
	assert.True(t, c.State().Feedback.IsZero())
}

func TestSetIdentityMode(t *testing.T) {
	c := New(&mockAuthService{})

	_, err := c.Submit(context.Background())
	require.Error(t, err)

	require.NoError(t, c.SetIdentityMode(domain.IdentityModeEmail))
	s := c.State()
	assert.Equal(t, domain.IdentityModeEmail, s.IdentityMode)
	assert.True(t, s.Feedback.IsZero())
}

func TestSetIdentityMode_SameModeOnlyClearsFeedback(t *testing.T) {
	c := New(&mockAuthService{})
	fill(t, c, map[Field]string{FieldPhone: "123"})

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	before := c.State()

	require.NoError(t, c.SetIdentityMode(domain.IdentityModePhone))
	after := c.State()

	before.Feedback = Feedback{}
	assert.Equal(t, before, after)
}

func TestSetIdentityMode_Invalid(t *testing.T) {
	c := New(&mockAuthService{})
	err := c.SetIdentityMode(domain.IdentityMode("username"))
	require.Error(t, err)
	assert.Equal(t, domain.IdentityModePhone, c.State().IdentityMode)
}

func TestTogglePasswordVisibility(t *testing.T) {
	c := New(&mockAuthService{})

	c.TogglePasswordVisibility()
	assert.True(t, c.State().PasswordVisible)
	c.TogglePasswordVisibility()
	assert.False(t, c.State().PasswordVisible)
}

// =============================================================================
// Submit
// =============================================================================

func TestSubmit_ValidationFailureNeverCallsAuth(t *testing.T) {
	tests := []struct {
		name       string
		mode       domain.IdentityMode
		values     map[Field]string
		wantReason Reason
		wantMsg    string
	}{
		{
			name:       "empty phone",
			mode:       domain.IdentityModePhone,
			values:     map[Field]string{FieldPassword: "123456"},
			wantReason: ReasonEmptyIdentity,
			wantMsg:    MsgEmptyPhone,
		},
		{
			name:       "empty email",
			mode:       domain.IdentityModeEmail,
			values:     map[Field]string{FieldPassword: "123456", FieldPhone: "912345678"},
			wantReason: ReasonEmptyIdentity,
			wantMsg:    MsgEmptyEmail,
		},
		{
			name:       "bad phone",
			mode:       domain.IdentityModePhone,
			values:     map[Field]string{FieldPhone: "123456", FieldPassword: "123456"},
			wantReason: ReasonInvalidPhoneFormat,
			wantMsg:    MsgInvalidPhone,
		},
		{
			name:       "bad email",
			mode:       domain.IdentityModeEmail,
			values:     map[Field]string{FieldEmail: "not-an-email", FieldPassword: "123456"},
			wantReason: ReasonInvalidEmailFormat,
			wantMsg:    MsgInvalidEmail,
		},
		{
			name:       "short password",
			mode:       domain.IdentityModePhone,
			values:     map[Field]string{FieldPhone: "912345678", FieldPassword: "12345"},
			wantReason: ReasonPasswordTooShort,
			wantMsg:    MsgPasswordTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuthService{}
			c := New(auth)
			require.NoError(t, c.SetIdentityMode(tt.mode))
			fill(t, c, tt.values)

			sub, err := c.Submit(context.Background())
			require.Error(t, err)
			assert.Nil(t, sub)
			assert.Equal(t, tt.wantReason, ReasonOf(err))

			s := c.State()
			assert.False(t, s.Submitting)
			assert.Equal(t, Feedback{Kind: FeedbackError, Message: tt.wantMsg}, s.Feedback)
			assert.Empty(t, auth.Calls())
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	auth, release := gatedAuthService(domain.LoginOutcomeSuccess, nil)
	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912 345 678", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sub)

	s := c.State()
	assert.True(t, s.Submitting)
	assert.True(t, s.Feedback.IsZero())

	close(release)
	fb, err := waitFor(t, sub)
	require.NoError(t, err)
	assert.Equal(t, Feedback{Kind: FeedbackSuccess, Message: MsgLoginSucceeded}, fb)

	s = c.State()
	assert.False(t, s.Submitting)
	assert.Equal(t, fb, s.Feedback)

	calls := auth.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "912345678", calls[0].Identity)
	assert.Equal(t, "123456", calls[0].Password)
}

func TestSubmit_EmailIdentityIsTrimmed(t *testing.T) {
	auth := &mockAuthService{}
	c := New(auth)
	require.NoError(t, c.SetIdentityMode(domain.IdentityModeEmail))
	fill(t, c, map[Field]string{FieldEmail: "  a@b.com ", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)
	_, err = waitFor(t, sub)
	require.NoError(t, err)

	calls := auth.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "a@b.com", calls[0].Identity)
}

func TestSubmit_FailureOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.LoginOutcome
		err      error
		wantCode string
	}{
		{name: "rejected", outcome: domain.LoginOutcomeFailure, wantCode: domain.EUNAUTHORIZED},
		{name: "unknown outcome", outcome: domain.LoginOutcome(""), wantCode: domain.EUNAUTHORIZED},
		{name: "service error", outcome: domain.LoginOutcomeFailure, err: errors.New("connection refused"), wantCode: domain.EINTERNAL},
		{name: "timeout", err: domain.Timeout(context.DeadlineExceeded, "service.login", "timed out"), wantCode: domain.ETIMEOUT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuthService{
				LoginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
					return tt.outcome, tt.err
				},
			}
			c := New(auth)
			fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

			sub, err := c.Submit(context.Background())
			require.NoError(t, err)

			fb, err := waitFor(t, sub)
			require.Error(t, err)
			assert.Equal(t, ReasonSubmissionFailed, ReasonOf(err))
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			assert.Equal(t, Feedback{Kind: FeedbackError, Message: MsgSubmissionFailed}, fb)

			s := c.State()
			assert.False(t, s.Submitting)
			assert.Equal(t, fb, s.Feedback)
		})
	}
}

func TestSubmit_PanickingServiceIsAFailure(t *testing.T) {
	auth := &mockAuthService{
		LoginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
			panic("backend exploded")
		},
	}
	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)

	fb, err := waitFor(t, sub)
	require.Error(t, err)
	assert.Equal(t, MsgSubmissionFailed, fb.Message)
	assert.False(t, c.State().Submitting)
}

func TestSubmit_OnlyOneInFlight(t *testing.T) {
	auth, release := gatedAuthService(domain.LoginOutcomeSuccess, nil)
	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)

	again, err := c.Submit(context.Background())
	assert.Nil(t, again)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.True(t, c.State().Submitting)

	close(release)
	_, err = waitFor(t, sub)
	require.NoError(t, err)
	assert.Len(t, auth.Calls(), 1)

	// Once resolved the form accepts another submit.
	next, err := c.Submit(context.Background())
	require.NoError(t, err)
	_, err = waitFor(t, next)
	require.NoError(t, err)
	assert.Len(t, auth.Calls(), 2)
}

func TestSubmit_NotCancelledByCallerContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	auth := &mockAuthService{
		LoginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
			close(started)
			select {
			case <-ctx.Done():
				return domain.LoginOutcomeFailure, ctx.Err()
			case <-release:
				return domain.LoginOutcomeSuccess, nil
			}
		},
	}
	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.Submit(ctx)
	require.NoError(t, err)

	<-started
	cancel()
	close(release)

	fb, err := waitFor(t, sub)
	require.NoError(t, err)
	assert.Equal(t, FeedbackSuccess, fb.Kind)
}

func TestSubmit_EditsDuringSubmissionDoNotChangeIdentity(t *testing.T) {
	auth, release := gatedAuthService(domain.LoginOutcomeSuccess, nil)
	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.UpdateField(FieldPhone, "999999999"))
	assert.True(t, c.State().Submitting)

	close(release)
	_, err = waitFor(t, sub)
	require.NoError(t, err)
	assert.Equal(t, "912345678", auth.Calls()[0].Identity)
}

func TestSubmission_WaitHonoursContext(t *testing.T) {
	auth, release := gatedAuthService(domain.LoginOutcomeSuccess, nil)
	defer close(release)

	c := New(auth)
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})
	sub, err := c.Submit(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = sub.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.State().Submitting)
}

// =============================================================================
// Observers
// =============================================================================

func TestObserve_SubmittingTrueOnlyWhileInFlight(t *testing.T) {
	auth, release := gatedAuthService(domain.LoginOutcomeFailure, nil)

	var (
		mu        sync.Mutex
		snapshots []FormState
	)
	c := New(auth, WithObserver(func(s FormState) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	}))
	fill(t, c, map[Field]string{FieldPhone: "912345678", FieldPassword: "123456"})

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)
	close(release)
	_, err = waitFor(t, sub)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()

	// Two field edits, submit start, resolution.
	require.Len(t, snapshots, 4)
	assert.False(t, snapshots[0].Submitting)
	assert.False(t, snapshots[1].Submitting)
	assert.True(t, snapshots[2].Submitting)
	assert.True(t, snapshots[2].Feedback.IsZero())
	assert.False(t, snapshots[3].Submitting)
	assert.Equal(t, MsgSubmissionFailed, snapshots[3].Feedback.Message)
}

func TestObserve_FeedbackKindMatchesMessage(t *testing.T) {
	var bad []FormState
	c := New(&mockAuthService{})
	c.Observe(func(s FormState) {
		if (s.Feedback.Kind == FeedbackNone) != (s.Feedback.Message == "") {
			bad = append(bad, s)
		}
	})

	_, _ = c.Submit(context.Background())
	require.NoError(t, c.SetIdentityMode(domain.IdentityModeEmail))
	_, _ = c.Submit(context.Background())
	fill(t, c, map[Field]string{FieldEmail: "a@b.com", FieldPassword: "123456"})
	sub, err := c.Submit(context.Background())
	require.NoError(t, err)
	_, _ = waitFor(t, sub)

	assert.Empty(t, bad)
}
