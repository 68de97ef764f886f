package loginform

import (
	"errors"

	"github.com/DukeRupert/pakipark/internal/domain"
)

// Reason identifies why a submit did not end in a successful login.
type Reason string

const (
	ReasonEmptyIdentity      Reason = "empty_identity"
	ReasonInvalidPhoneFormat Reason = "invalid_phone_format"
	ReasonInvalidEmailFormat Reason = "invalid_email_format"
	ReasonPasswordTooShort   Reason = "password_too_short"
	ReasonSubmissionFailed   Reason = "submission_failed"
)

// User-facing messages.
const (
	MsgEmptyPhone         = "Please enter your phone number."
	MsgEmptyEmail         = "Please enter your email."
	MsgInvalidPhone       = "Please enter a valid phone number (7 to 15 digits)."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgPasswordTooShort   = "Password must be at least 6 characters."
	MsgLoginSucceeded     = "Login successful. Redirecting..."
	MsgSubmissionFailed   = "Unable to log in right now. Please try again."
	msgSubmissionInFlight = "A login attempt is already in progress."
)

// ErrSubmissionInFlight is returned by Submit while another submission has
// not resolved yet.
var ErrSubmissionInFlight = domain.Conflict("loginform.submit", msgSubmissionInFlight)

// FormError is a failure the form reports to the user. Message is always the
// exact text placed in the form's feedback.
type FormError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return e.Err
}

func invalid(reason Reason, message string) *FormError {
	return &FormError{
		Reason:  reason,
		Message: message,
		Err:     domain.Invalid("loginform.validate", message),
	}
}

func submissionFailed(err error) *FormError {
	return &FormError{
		Reason:  ReasonSubmissionFailed,
		Message: MsgSubmissionFailed,
		Err:     err,
	}
}

// ReasonOf returns the Reason carried by err, or "" if err is not a FormError.
func ReasonOf(err error) Reason {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}
