package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLoginPage_PhoneMode(t *testing.T) {
	body := render(t, LoginPage(LoginPageData{
		Form:      FormData{Mode: domain.IdentityModePhone, CountryCode: "+63", Phone: "912 345 6789"},
		CSRFToken: "tok123",
	}))

	assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
	assert.Contains(t, body, "<title>Login | PakiPark</title>")
	assert.Contains(t, body, `name="csrf_token" value="tok123"`)
	assert.Contains(t, body, `name="mode" value="phone"`)
	assert.Contains(t, body, `name="countryCode" value="+63"`)
	assert.Contains(t, body, `name="phone" value="912 345 6789"`)
	assert.Contains(t, body, `type="password" id="password"`)
	assert.Contains(t, body, ">Phone</button>")
	assert.Contains(t, body, ">Email</button>")
	assert.Contains(t, body, ">Login</button>")
	assert.NotContains(t, body, `role="status"`)
}

func TestLoginForm_EmailModeKeepsPhoneHidden(t *testing.T) {
	body := render(t, LoginForm(LoginPageData{
		Form: FormData{Mode: domain.IdentityModeEmail, CountryCode: "+1", Phone: "5551234", Email: "juan@pakipark.ph"},
	}))

	assert.True(t, strings.HasPrefix(body, `<form id="login-card"`))
	assert.Contains(t, body, `type="email" id="email" name="email" value="juan@pakipark.ph"`)
	assert.Contains(t, body, `<input type="hidden" name="phone" value="5551234">`)
	assert.Contains(t, body, `<input type="hidden" name="countryCode" value="+1">`)
}

func TestLoginForm_EscapesUserInput(t *testing.T) {
	body := render(t, LoginForm(LoginPageData{
		Form: FormData{Mode: domain.IdentityModeEmail, Email: `"><script>alert(1)</script>`},
	}))

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestLoginForm_SubmittingAndVisiblePassword(t *testing.T) {
	body := render(t, LoginForm(LoginPageData{
		Form: FormData{Mode: domain.IdentityModePhone, Password: "secret1", PasswordVisible: true, Submitting: true},
	}))

	assert.Contains(t, body, ">Logging in...</button>")
	assert.Contains(t, body, " disabled>")
	assert.Contains(t, body, `type="text" id="password" name="password" value="secret1"`)
	assert.Contains(t, body, `aria-label="Hide password"`)
	assert.Contains(t, body, `name="passwordVisible" value="true"`)
}

func TestLoginForm_Flash(t *testing.T) {
	tests := []struct {
		name      string
		flash     Flash
		wantClass string
	}{
		{"error", Flash{Type: FlashError, Message: "Please enter your email."}, "text-red-600"},
		{"success", Flash{Type: FlashSuccess, Message: "Login successful. Redirecting..."}, "text-green-700"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash := tt.flash
			body := render(t, LoginForm(LoginPageData{Form: FormData{Mode: domain.IdentityModeEmail}, Flash: &flash}))

			assert.Contains(t, body, `role="status"`)
			assert.Contains(t, body, tt.flash.Message)
			assert.Contains(t, body, tt.wantClass)
		})
	}
}

func TestInfoPage(t *testing.T) {
	body := render(t, InfoPage(InfoPageData{Title: "Sign Up", Message: "Account registration is opening soon."}))

	assert.Contains(t, body, "<title>Sign Up | PakiPark</title>")
	assert.Contains(t, body, "<h1 class=\"text-2xl font-bold\">Sign Up</h1>")
	assert.Contains(t, body, "Account registration is opening soon.")
	assert.Contains(t, body, `href="/login"`)
}

func TestModeButtonClass_ActiveOverridesBackground(t *testing.T) {
	assert.NotContains(t, modeButtonClass(true), "bg-transparent")
	assert.Contains(t, modeButtonClass(true), "bg-white")
	assert.Contains(t, modeButtonClass(false), "bg-transparent")
}
