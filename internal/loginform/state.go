// Package loginform implements the login form state machine: field edits,
// identity mode switching, local validation, and the single in-flight login
// submission with its success/error feedback.
package loginform

import "github.com/DukeRupert/pakipark/internal/domain"

// DefaultCountryCode is the country code a freshly mounted form starts with.
const DefaultCountryCode = "+63"

// Field names accepted by Controller.UpdateField. They match the input names
// used by the view layer.
type Field string

const (
	FieldCountryCode Field = "countryCode"
	FieldPhone       Field = "phone"
	FieldEmail       Field = "email"
	FieldPassword    Field = "password"
)

// Fields lists every editable field in display order.
var Fields = []Field{FieldCountryCode, FieldPhone, FieldEmail, FieldPassword}

// FeedbackKind classifies the status message shown under the form.
type FeedbackKind string

const (
	FeedbackNone    FeedbackKind = ""
	FeedbackError   FeedbackKind = "error"
	FeedbackSuccess FeedbackKind = "success"
)

// Feedback is the transient status message. The zero value means no message.
type Feedback struct {
	Kind    FeedbackKind
	Message string
}

// IsZero reports whether there is no feedback to show.
func (f Feedback) IsZero() bool {
	return f.Kind == FeedbackNone && f.Message == ""
}

func errorFeedback(message string) Feedback {
	return Feedback{Kind: FeedbackError, Message: message}
}

func successFeedback(message string) Feedback {
	return Feedback{Kind: FeedbackSuccess, Message: message}
}

// FormState is a snapshot of everything the login form shows.
//
// Only the field selected by IdentityMode is used as the identity; the other
// keeps whatever was typed so switching back restores it.
type FormState struct {
	IdentityMode    domain.IdentityMode
	CountryCode     string
	Phone           string
	Email           string
	Password        string
	PasswordVisible bool
	Submitting      bool
	Feedback        Feedback
}

// NewFormState returns the state of a freshly mounted form.
func NewFormState(countryCode string) FormState {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return FormState{
		IdentityMode: domain.IdentityModePhone,
		CountryCode:  countryCode,
	}
}

// Value returns the raw value of a field.
func (s FormState) Value(f Field) string {
	switch f {
	case FieldCountryCode:
		return s.CountryCode
	case FieldPhone:
		return s.Phone
	case FieldEmail:
		return s.Email
	case FieldPassword:
		return s.Password
	}
	return ""
}

func (s *FormState) set(f Field, value string) bool {
	switch f {
	case FieldCountryCode:
		s.CountryCode = value
	case FieldPhone:
		s.Phone = value
	case FieldEmail:
		s.Email = value
	case FieldPassword:
		s.Password = value
	default:
		return false
	}
	return true
}
