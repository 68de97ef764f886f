package handler

import (
	"github.com/DukeRupert/pakipark/internal/loginform"
	authpages "github.com/DukeRupert/pakipark/internal/templ/pages/auth"
)

// loginPageData converts form state into the login page's view data.
func loginPageData(s loginform.FormState, csrfToken string) authpages.LoginPageData {
	data := authpages.LoginPageData{
		Form: authpages.FormData{
			Mode:            s.IdentityMode,
			CountryCode:     s.CountryCode,
			Phone:           s.Phone,
			Email:           s.Email,
			Password:        s.Password,
			PasswordVisible: s.PasswordVisible,
			Submitting:      s.Submitting,
		},
		CSRFToken: csrfToken,
	}

	switch s.Feedback.Kind {
	case loginform.FeedbackError:
		data.Flash = &authpages.Flash{Type: authpages.FlashError, Message: s.Feedback.Message}
	case loginform.FeedbackSuccess:
		data.Flash = &authpages.Flash{Type: authpages.FlashSuccess, Message: s.Feedback.Message}
	}

	return data
}
