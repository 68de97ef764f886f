package auth

import "github.com/DukeRupert/pakipark/internal/domain"

// LoginPageData contains data for the login page and its form fragment
type LoginPageData struct {
	Form      FormData
	Flash     *Flash
	CSRFToken string
}

// FormData holds the form's values so every render restores them
type FormData struct {
	Mode            domain.IdentityMode
	CountryCode     string
	Phone           string
	Email           string
	Password        string
	PasswordVisible bool
	Submitting      bool
}

// IsEmail reports whether the email input is the active identity.
func (f FormData) IsEmail() bool {
	return f.Mode == domain.IdentityModeEmail
}

// FlashType selects how a flash message is styled
type FlashType string

const (
	FlashError   FlashType = "error"
	FlashSuccess FlashType = "success"
)

// Flash is a one-shot status message shown under the submit button
type Flash struct {
	Type    FlashType
	Message string
}

// InfoPageData contains data for a simple informational page
type InfoPageData struct {
	Title   string
	Message string
}

// Modes lists the identity modes offered by the toggle, in display order.
var Modes = []domain.IdentityMode{domain.IdentityModePhone, domain.IdentityModeEmail}
