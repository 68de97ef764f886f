// Package handler contains HTTP handlers for the PakiPark web surface.
//
// This file implements the login page: rendering the form, applying mode and
// password visibility toggles, and submitting login attempts.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/pakipark/internal/csrf"
	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/loginform"
	"github.com/DukeRupert/pakipark/internal/navigation"
	"github.com/DukeRupert/pakipark/internal/service"
	authpages "github.com/DukeRupert/pakipark/internal/templ/pages/auth"
	"github.com/a-h/templ"
)

const (
	pathLoginMode               = "/login/mode"
	pathLoginPasswordVisibility = "/login/password-visibility"

	// maxLoginBodyBytes caps JSON login bodies.
	maxLoginBodyBytes = 16 << 10
)

// LoginHandler serves the login form.
//
// The page keeps no server-side state between requests: every request mounts
// a fresh loginform.Controller, replays the posted field values into it, and
// applies the requested transition. The form's fields (including the
// password, so toggles do not lose it) travel with each post.
//
// Form posts are CSRF-checked with the double-submit cookie set when the
// form is rendered. JSON posts are not: browsers cannot send them cross-site
// without a CORS preflight.
//
// Routes handled:
// - GET  /login                      -> ShowLogin
// - POST /login                      -> Login
// - POST /login/mode                 -> SwitchMode
// - POST /login/password-visibility  -> TogglePasswordVisibility
// - GET  /back                       -> Back
// - GET  /forgot-password            -> ShowForgotPassword
// - GET  /signup                     -> ShowSignUp
type LoginHandler struct {
	auth        service.AuthService
	logger      *slog.Logger
	countryCode string
	isSecure    bool
}

// NewLoginHandler creates a LoginHandler. countryCode is the default shown in
// a freshly mounted form; isSecure marks cookies Secure.
//
// Example usage in main.go:
//
//	loginHandler := handler.NewLoginHandler(authService, logger, cfg.DefaultCountryCode, cfg.Env != "development")
//	loginHandler.RegisterRoutes(mux)
func NewLoginHandler(auth service.AuthService, logger *slog.Logger, countryCode string, isSecure bool) *LoginHandler {
	return &LoginHandler{
		auth:        auth,
		logger:      logger,
		countryCode: countryCode,
		isSecure:    isSecure,
	}
}

// RegisterRoutes registers the login routes on the provided ServeMux.
func (h *LoginHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+navigation.PathLogin, h.ShowLogin)
	mux.HandleFunc("POST "+navigation.PathLogin, h.Login)
	mux.HandleFunc("POST "+pathLoginMode, h.SwitchMode)
	mux.HandleFunc("POST "+pathLoginPasswordVisibility, h.TogglePasswordVisibility)
	mux.HandleFunc("GET /back", h.Back)
	mux.HandleFunc("GET "+navigation.PathForgotPassword, h.ShowForgotPassword)
	mux.HandleFunc("GET "+navigation.PathSignUp, h.ShowSignUp)
}

// =============================================================================
// Request parsing
// =============================================================================

// loginRequest carries the form's fields. Nil fields were not posted and
// keep their defaults.
type loginRequest struct {
	Mode            string  `json:"mode"`
	CountryCode     *string `json:"countryCode"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordVisible bool    `json:"passwordVisible"`

	json bool
}

func (req *loginRequest) field(f loginform.Field) **string {
	switch f {
	case loginform.FieldCountryCode:
		return &req.CountryCode
	case loginform.FieldPhone:
		return &req.Phone
	case loginform.FieldEmail:
		return &req.Email
	case loginform.FieldPassword:
		return &req.Password
	}
	return nil
}

func parseLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest

	if hasJSONBody(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, domain.Wrap(err, domain.EINVALID, "handler.parse_login", "Invalid request body.")
		}
		req.json = true
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, domain.Wrap(err, domain.EINVALID, "handler.parse_login", "Invalid form submission. Please try again.")
	}

	req.Mode = r.PostForm.Get("mode")
	for _, f := range loginform.Fields {
		if values, ok := r.PostForm[string(f)]; ok && len(values) > 0 {
			v := values[0]
			*req.field(f) = &v
		}
	}
	req.PasswordVisible = r.PostForm.Get("passwordVisible") == "true"

	return req, nil
}

func (h *LoginHandler) newForm() *loginform.Controller {
	return loginform.New(h.auth,
		loginform.WithLogger(h.logger),
		loginform.WithCountryCode(h.countryCode),
	)
}

// mount creates a fresh form and replays req into it.
func (h *LoginHandler) mount(req loginRequest) (*loginform.Controller, error) {
	form := h.newForm()

	if req.Mode != "" {
		mode, err := domain.ParseIdentityMode(req.Mode)
		if err != nil {
			return nil, err
		}
		if err := form.SetIdentityMode(mode); err != nil {
			return nil, err
		}
	}

	for _, f := range loginform.Fields {
		if v := *req.field(f); v != nil {
			if err := form.UpdateField(f, *v); err != nil {
				return nil, err
			}
		}
	}

	if req.PasswordVisible {
		form.TogglePasswordVisibility()
	}

	return form, nil
}

func (h *LoginHandler) parseAndMount(w http.ResponseWriter, r *http.Request) (*loginform.Controller, bool) {
	req, err := parseLoginRequest(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return nil, false
	}
	if !req.json && !csrf.ValidateRequest(r) {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EFORBIDDEN, "handler.csrf",
			"Your session expired. Please reload the page and try again."))
		return nil, false
	}
	form, err := h.mount(req)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return nil, false
	}
	return form, true
}

// =============================================================================
// GET /login - Show Login Form
// =============================================================================

// ShowLogin renders a freshly mounted form.
//
// Query Parameters:
// - mode (optional): "phone" or "email" to preselect the identity mode
func (h *LoginHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	form := h.newForm()

	if raw := r.URL.Query().Get("mode"); raw != "" {
		if mode, err := domain.ParseIdentityMode(raw); err == nil {
			_ = form.SetIdentityMode(mode)
		}
	}

	h.render(w, r, authpages.LoginPage(loginPageData(form.State(), csrf.EnsureToken(w, r, h.isSecure))))
}

// =============================================================================
// POST /login - Submit
// =============================================================================

// Login validates the posted form and, when it passes, waits for the
// authentication service before answering.
//
// HTML and htmx clients always get 200 with the re-rendered form; the result
// is in the form's feedback. JSON clients get a loginResponse with a status
// mapped from the failure's error code.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseAndMount(w, r)
	if !ok {
		return
	}

	sub, err := form.Submit(r.Context())
	if err != nil {
		h.respond(w, r, form.State(), err)
		return
	}

	_, err = sub.Wait(r.Context())
	if err != nil && r.Context().Err() != nil && errors.Is(err, r.Context().Err()) {
		// Client went away; the submission still resolves on its own.
		h.logger.Info("login request abandoned before result", "attempt_id", sub.ID)
		return
	}

	h.respond(w, r, form.State(), err)
}

// loginResponse is the JSON body returned by POST /login.
type loginResponse struct {
	Success  bool   `json:"success"`
	Feedback struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"feedback"`
	Reason string `json:"reason,omitempty"`
}

func (h *LoginHandler) respond(w http.ResponseWriter, r *http.Request, s loginform.FormState, err error) {
	if !acceptsJSON(r) {
		h.renderForm(w, r, s)
		return
	}

	var body loginResponse
	body.Success = err == nil
	body.Feedback.Kind = string(s.Feedback.Kind)
	body.Feedback.Message = s.Feedback.Message
	body.Reason = string(loginform.ReasonOf(err))

	status := http.StatusOK
	if err != nil {
		status = ErrorCodeToHTTPStatus(domain.ErrorCode(err))
	}
	writeJSON(w, status, body)
}

// =============================================================================
// POST /login/mode, POST /login/password-visibility - Toggles
// =============================================================================

// SwitchMode applies the posted fields and switches to the mode named by the
// switch_mode value.
func (h *LoginHandler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseAndMount(w, r)
	if !ok {
		return
	}

	mode, err := domain.ParseIdentityMode(r.FormValue("switch_mode"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := form.SetIdentityMode(mode); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.renderForm(w, r, form.State())
}

// TogglePasswordVisibility applies the posted fields and flips password
// visibility.
func (h *LoginHandler) TogglePasswordVisibility(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseAndMount(w, r)
	if !ok {
		return
	}

	form.TogglePasswordVisibility()
	h.renderForm(w, r, form.State())
}

// =============================================================================
// Navigation
// =============================================================================

// Back returns the user to the page they came from.
func (h *LoginHandler) Back(w http.ResponseWriter, r *http.Request) {
	navigation.NewRedirector(w, r, navigation.PathHome).GoBack()
}

// ShowForgotPassword renders the forgot-password page linked from the form.
func (h *LoginHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, authpages.InfoPage(authpages.InfoPageData{
		Title:   "Forgot Password",
		Message: "Password recovery is not available yet. Please contact PakiPark support.",
	}))
}

// ShowSignUp renders the sign-up page linked from the form.
func (h *LoginHandler) ShowSignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, authpages.InfoPage(authpages.InfoPageData{
		Title:   "Sign Up",
		Message: "Account registration is opening soon.",
	}))
}

// =============================================================================
// Rendering
// =============================================================================

// renderForm renders only the card for htmx requests and the whole page
// otherwise.
func (h *LoginHandler) renderForm(w http.ResponseWriter, r *http.Request, s loginform.FormState) {
	data := loginPageData(s, csrf.EnsureToken(w, r, h.isSecure))
	if r.Header.Get("HX-Request") == "true" {
		h.render(w, r, authpages.LoginForm(data))
		return
	}
	h.render(w, r, authpages.LoginPage(data))
}

func (h *LoginHandler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Rendered forms can carry the typed password.
	w.Header().Set("Cache-Control", "no-store")

	// Render detached from the request so a slow client cannot cut a page
	// in half through cancellation.
	if err := c.Render(context.WithoutCancel(r.Context()), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
