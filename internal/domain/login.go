// Package domain contains core types shared by the login form, its
// collaborators, and the surfaces that host it.
package domain

import "strings"

// IdentityMode selects which identity field the login form treats as active.
type IdentityMode string

const (
	IdentityModePhone IdentityMode = "phone"
	IdentityModeEmail IdentityMode = "email"
)

// Valid reports whether m is one of the known identity modes.
func (m IdentityMode) Valid() bool {
	return m == IdentityModePhone || m == IdentityModeEmail
}

// ParseIdentityMode converts a raw value (e.g. a form field) into an IdentityMode.
func ParseIdentityMode(s string) (IdentityMode, error) {
	m := IdentityMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", Invalid("domain.parse_identity_mode", "identity mode must be 'phone' or 'email'")
	}
	return m, nil
}

// LoginOutcome is the two-valued result an authentication collaborator reports.
type LoginOutcome string

const (
	LoginOutcomeSuccess LoginOutcome = "success"
	LoginOutcomeFailure LoginOutcome = "failure"
)

// MaskIdentity hides most of an identity so it can be logged.
//
// Emails keep the first character of the local part and the full domain;
// phone numbers keep their last three digits.
func MaskIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	if at := strings.LastIndex(identity, "@"); at > 0 {
		local := []rune(identity[:at])
		return string(local[0]) + strings.Repeat("*", len(local)-1) + identity[at:]
	}
	runes := []rune(identity)
	if len(runes) <= 3 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-3) + string(runes[len(runes)-3:])
}
