package loginform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/DukeRupert/pakipark/internal/domain"
)

// MinPasswordLength is the shortest password the form will submit.
const MinPasswordLength = 6

// Whitespace follows the browser definition: ASCII controls, Unicode Z, and BOM.
const spaceClass = `\t\n\v\f\r\p{Z}\x{FEFF}`

var (
	phonePattern = regexp.MustCompile(`^\d{7,15}$`)
	emailPattern = regexp.MustCompile(`^[^` + spaceClass + `]+@[^` + spaceClass + `]+\.[^` + spaceClass + `]+$`)
)

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Z, r)
}

// NormalizePhone removes every whitespace character from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// NormalizeEmail trims surrounding whitespace from an email address.
func NormalizeEmail(email string) string {
	return strings.TrimFunc(email, isSpace)
}

// ValidationResult is the outcome of Validate. Identity is set only when Err
// is nil.
type ValidationResult struct {
	Identity string
	Err      *FormError
}

// Valid reports whether every check passed.
func (r ValidationResult) Valid() bool {
	return r.Err == nil
}

// Validate runs the submit-time checks against s. Checks run in a fixed order
// and the first failure wins: presence, identity format, password length.
func Validate(s FormState) ValidationResult {
	var identity string
	if s.IdentityMode == domain.IdentityModeEmail {
		identity = NormalizeEmail(s.Email)
	} else {
		identity = NormalizePhone(s.Phone)
	}

	if identity == "" {
		if s.IdentityMode == domain.IdentityModeEmail {
			return ValidationResult{Err: invalid(ReasonEmptyIdentity, MsgEmptyEmail)}
		}
		return ValidationResult{Err: invalid(ReasonEmptyIdentity, MsgEmptyPhone)}
	}

	switch s.IdentityMode {
	case domain.IdentityModeEmail:
		if !emailPattern.MatchString(identity) {
			return ValidationResult{Err: invalid(ReasonInvalidEmailFormat, MsgInvalidEmail)}
		}
	default:
		if !phonePattern.MatchString(identity) {
			return ValidationResult{Err: invalid(ReasonInvalidPhoneFormat, MsgInvalidPhone)}
		}
	}

	if passwordLength(s.Password) < MinPasswordLength {
		return ValidationResult{Err: invalid(ReasonPasswordTooShort, MsgPasswordTooShort)}
	}

	return ValidationResult{Identity: identity}
}

// passwordLength counts UTF-16 code units, the unit browsers use for an
// input's length.
func passwordLength(password string) int {
	n := 0
	for _, r := range password {
		n += utf16.RuneLen(r)
	}
	return n
}
