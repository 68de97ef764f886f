// Package navigation provides the page-transition collaborator used by the
// login form's back button and its forgot-password and sign-up links.
package navigation

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Paths the login page links to.
const (
	PathHome           = "/"
	PathLogin          = "/login"
	PathForgotPassword = "/forgot-password"
	PathSignUp         = "/signup"
)

// Navigator moves the user between pages. The login form never calls it
// itself; the view layer does, in response to the back button and links.
type Navigator interface {
	GoBack()
	NavigateTo(path string)
}

// IsSafePath reports whether rawURL is a same-origin path that can be used
// as a redirect target.
func IsSafePath(rawURL string) bool {
	// Must start with / but not // (protocol-relative URL)
	if !strings.HasPrefix(rawURL, "/") || strings.HasPrefix(rawURL, "//") {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	// Must not carry a scheme or host
	return parsed.Scheme == "" && parsed.Host == ""
}

// =============================================================================
// HTTP
// =============================================================================

// Redirector navigates by answering the current request with a redirect.
// It is bound to one request and must be used at most once.
type Redirector struct {
	w        http.ResponseWriter
	r        *http.Request
	fallback string
}

// NewRedirector creates a navigator for a single request. fallback is used
// when the requested target is not a safe same-origin path.
func NewRedirector(w http.ResponseWriter, r *http.Request, fallback string) *Redirector {
	if !IsSafePath(fallback) {
		fallback = PathHome
	}
	return &Redirector{w: w, r: r, fallback: fallback}
}

// GoBack redirects to the referring page when it belongs to this site.
func (n *Redirector) GoBack() {
	target := n.fallback

	if ref, err := url.Parse(n.r.Referer()); err == nil && ref.Host == n.r.Host && ref.Path != "" {
		back := ref.RequestURI()
		if IsSafePath(back) && ref.Path != n.r.URL.Path {
			target = back
		}
	}

	n.redirect(target)
}

// NavigateTo redirects to path.
func (n *Redirector) NavigateTo(path string) {
	if !IsSafePath(path) {
		path = n.fallback
	}
	n.redirect(path)
}

func (n *Redirector) redirect(target string) {
	// htmx follows HX-Redirect instead of a 3xx on XHR requests
	if n.r.Header.Get("HX-Request") == "true" {
		n.w.Header().Set("HX-Redirect", target)
		n.w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(n.w, n.r, target, http.StatusSeeOther)
}

// =============================================================================
// In-memory history
// =============================================================================

// History is a stack-based navigator for clients without a browser, such as
// the terminal client. Going back from the first page calls onExit.
type History struct {
	mu     sync.Mutex
	stack  []string
	onExit func()
}

// NewHistory starts a history at start.
func NewHistory(start string, onExit func()) *History {
	return &History{
		stack:  []string{start},
		onExit: onExit,
	}
}

// NavigateTo pushes path onto the history.
func (h *History) NavigateTo(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, path)
}

// GoBack pops the current page, or exits when there is nothing to go back to.
func (h *History) GoBack() {
	h.mu.Lock()
	if len(h.stack) > 1 {
		h.stack = h.stack[:len(h.stack)-1]
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if h.onExit != nil {
		h.onExit()
	}
}

// Current returns the page at the top of the history.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[len(h.stack)-1]
}
