package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/DukeRupert/pakipark/internal/csrf"
	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/loginform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock AuthService for handler tests
// =============================================================================

type mockAuthService struct {
	LoginFunc func(ctx context.Context, identity, password string) (domain.LoginOutcome, error)

	mu    sync.Mutex
	calls []loginCall
}

type loginCall struct {
	identity string
	password string
}

func (m *mockAuthService) Login(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, loginCall{identity: identity, password: password})
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

// =============================================================================
// Test helpers
// =============================================================================

func newTestLoginHandler(auth *mockAuthService) (*LoginHandler, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewLoginHandler(auth, logger, loginform.DefaultCountryCode, false)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

const testCSRFToken = "test-csrf-token"

// postForm builds a form post carrying a valid CSRF token pair.
func postForm(path string, form url.Values) *http.Request {
	form.Set(csrf.FormFieldName, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: testCSRFToken})
	return req
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// GET /login
// =============================================================================

func TestShowLogin_RendersDefaultForm(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, `name="mode" value="phone"`)
	assert.Contains(t, body, `name="countryCode" value="+63"`)
	assert.Contains(t, body, `type="password"`)
	assert.Contains(t, body, "Show password")
	assert.NotContains(t, body, `role="status"`)
}

func TestShowLogin_SetsCSRFCookieAndField(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/login", nil))

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrf.CookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "expected CSRF cookie")
	assert.Contains(t, rec.Body.String(), `name="csrf_token" value="`+token+`"`)
}

func TestNewForm_LogsThroughHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewLoginHandler(&mockAuthService{}, logger, loginform.DefaultCountryCode, false)

	_, err := h.newForm().Submit(context.Background())
	require.Error(t, err)

	assert.Contains(t, buf.String(), "login form rejected")
}

func TestShowLogin_PreselectsModeFromQuery(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/login?mode=email", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="mode" value="email"`)
	assert.Contains(t, rec.Body.String(), `type="email"`)
}

func TestShowLogin_IgnoresUnknownMode(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/login?mode=carrier-pigeon", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="mode" value="phone"`)
}

// =============================================================================
// POST /login
// =============================================================================

func TestLogin_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "empty phone",
			form:    url.Values{"mode": {"phone"}, "phone": {""}, "password": {"123456"}},
			message: loginform.MsgEmptyPhone,
		},
		{
			name:    "short phone",
			form:    url.Values{"mode": {"phone"}, "phone": {"12345"}, "password": {"123456"}},
			message: loginform.MsgInvalidPhone,
		},
		{
			name:    "empty email",
			form:    url.Values{"mode": {"email"}, "email": {"   "}, "password": {"123456"}},
			message: loginform.MsgEmptyEmail,
		},
		{
			name:    "malformed email",
			form:    url.Values{"mode": {"email"}, "email": {"user@domain"}, "password": {"123456"}},
			message: loginform.MsgInvalidEmail,
		},
		{
			name:    "short password",
			form:    url.Values{"mode": {"phone"}, "phone": {"912 345 6789"}, "password": {"12345"}},
			message: loginform.MsgPasswordTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuthService{}
			_, mux := newTestLoginHandler(auth)

			rec := serve(mux, postForm("/login", tt.form))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.Empty(t, auth.Calls(), "auth service must not be called")
		})
	}
}

func TestLogin_SuccessCallsAuthWithNormalizedIdentity(t *testing.T) {
	auth := &mockAuthService{}
	_, mux := newTestLoginHandler(auth)

	rec := serve(mux, postForm("/login", url.Values{
		"mode":        {"phone"},
		"countryCode": {"+63"},
		"phone":       {"912 345 6789"},
		"password":    {"123456"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), loginform.MsgLoginSucceeded)

	calls := auth.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "9123456789", calls[0].identity)
	assert.Equal(t, "123456", calls[0].password)
}

func TestLogin_FailureShowsGenericMessage(t *testing.T) {
	auth := &mockAuthService{
		LoginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
			return domain.LoginOutcomeFailure, errors.New("upstream exploded")
		},
	}
	_, mux := newTestLoginHandler(auth)

	rec := serve(mux, postForm("/login", url.Values{
		"mode":     {"email"},
		"email":    {"  User@Example.COM "},
		"password": {"123456"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, loginform.MsgSubmissionFailed)
	assert.NotContains(t, body, "upstream exploded")

	calls := auth.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "User@Example.COM", calls[0].identity)
}

func TestLogin_HTMXGetsFragment(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	req := postForm("/login", url.Values{"mode": {"phone"}, "phone": {"9123456789"}, "password": {"123456"}})
	req.Header.Set("HX-Request", "true")
	rec := serve(mux, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<!doctype html>")
	assert.True(t, strings.HasPrefix(body, `<form id="login-card"`), "expected form fragment, got: %.80s", body)
	assert.Contains(t, body, loginform.MsgLoginSucceeded)
}

func TestLogin_RejectsMissingCSRFToken(t *testing.T) {
	auth := &mockAuthService{}
	_, mux := newTestLoginHandler(auth)

	form := url.Values{"mode": {"phone"}, "phone": {"9123456789"}, "password": {"123456"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: testCSRFToken})
	rec := serve(mux, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, auth.Calls())
}

func TestLogin_SafelistedContentTypeIsNotJSON(t *testing.T) {
	auth := &mockAuthService{}
	_, mux := newTestLoginHandler(auth)

	body := `{"mode":"email","email":"juan@pakipark.ph","password":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain; charset=application/json")
	rec := serve(mux, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, auth.Calls())
}

func TestLogin_RejectsUnknownMode(t *testing.T) {
	auth := &mockAuthService{}
	_, mux := newTestLoginHandler(auth)

	rec := serve(mux, postForm("/login", url.Values{"mode": {"fax"}, "password": {"123456"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auth.Calls())
}

func TestLogin_JSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		loginFunc   func(ctx context.Context, identity, password string) (domain.LoginOutcome, error)
		wantStatus  int
		wantSuccess bool
		wantKind    string
		wantMessage string
		wantReason  string
	}{
		{
			name:        "success",
			body:        `{"mode":"email","email":"juan@pakipark.ph","password":"123456"}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantKind:    "success",
			wantMessage: loginform.MsgLoginSucceeded,
		},
		{
			name:        "validation failure",
			body:        `{"mode":"email","email":"juan@","password":"123456"}`,
			wantStatus:  http.StatusBadRequest,
			wantKind:    "error",
			wantMessage: loginform.MsgInvalidEmail,
			wantReason:  "invalid_email_format",
		},
		{
			name: "rejected credentials",
			body: `{"mode":"phone","phone":"9123456789","password":"123456"}`,
			loginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
				return domain.LoginOutcomeFailure, nil
			},
			wantStatus:  http.StatusUnauthorized,
			wantKind:    "error",
			wantMessage: loginform.MsgSubmissionFailed,
			wantReason:  "submission_failed",
		},
		{
			name: "service timeout",
			body: `{"mode":"phone","phone":"9123456789","password":"123456"}`,
			loginFunc: func(ctx context.Context, identity, password string) (domain.LoginOutcome, error) {
				return domain.LoginOutcomeFailure, domain.Timeout(context.DeadlineExceeded, "service.login", "timed out")
			},
			wantStatus:  http.StatusGatewayTimeout,
			wantKind:    "error",
			wantMessage: loginform.MsgSubmissionFailed,
			wantReason:  "submission_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mux := newTestLoginHandler(&mockAuthService{LoginFunc: tt.loginFunc})

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(mux, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp loginResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantSuccess, resp.Success)
			assert.Equal(t, tt.wantKind, resp.Feedback.Kind)
			assert.Equal(t, tt.wantMessage, resp.Feedback.Message)
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}

func TestLogin_JSONMalformedBody(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"mode":`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(mux, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp JSONError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.EINVALID, resp.Error.Code)
}

// =============================================================================
// Toggles
// =============================================================================

func TestSwitchMode_KeepsValuesAndClearsFeedback(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	req := postForm("/login/mode", url.Values{
		"mode":        {"phone"},
		"switch_mode": {"email"},
		"countryCode": {"+1"},
		"phone":       {"5551234"},
		"email":       {"kept@example.com"},
		"password":    {"secret1"},
	})
	req.Header.Set("HX-Request", "true")
	rec := serve(mux, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="mode" value="email"`)
	assert.Contains(t, body, `value="kept@example.com"`)
	assert.Contains(t, body, `name="phone" value="5551234"`)
	assert.Contains(t, body, `name="countryCode" value="+1"`)
	assert.Contains(t, body, `value="secret1"`)
	assert.NotContains(t, body, `role="status"`)
}

func TestSwitchMode_RejectsUnknownMode(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, postForm("/login/mode", url.Values{"switch_mode": {"sms"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTogglePasswordVisibility(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	rec := serve(mux, postForm("/login/password-visibility", url.Values{
		"passwordVisible": {"false"},
		"password":        {"secret1"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `type="text" id="password"`)
	assert.Contains(t, rec.Body.String(), "Hide password")

	rec = serve(mux, postForm("/login/password-visibility", url.Values{
		"passwordVisible": {"true"},
		"password":        {"secret1"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `type="password" id="password"`)
	assert.Contains(t, rec.Body.String(), "Show password")
}

// =============================================================================
// Navigation
// =============================================================================

func TestBack(t *testing.T) {
	tests := []struct {
		name     string
		referer  string
		htmx     bool
		wantCode int
		wantLoc  string
	}{
		{"no referer falls back home", "", false, http.StatusSeeOther, "/"},
		{"same-host referer", "http://example.com/signup", false, http.StatusSeeOther, "/signup"},
		{"foreign referer ignored", "http://evil.test/phish", false, http.StatusSeeOther, "/"},
		{"htmx uses HX-Redirect", "", true, http.StatusNoContent, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mux := newTestLoginHandler(&mockAuthService{})

			req := httptest.NewRequest(http.MethodGet, "http://example.com/back", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := serve(mux, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.htmx {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("HX-Redirect"))
			} else {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
		})
	}
}

func TestPlaceholderPages(t *testing.T) {
	_, mux := newTestLoginHandler(&mockAuthService{})

	for path, title := range map[string]string{
		"/forgot-password": "Forgot Password",
		"/signup":          "Sign Up",
	} {
		rec := serve(mux, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), title)
		assert.Contains(t, rec.Body.String(), `href="/login"`)
	}
}
