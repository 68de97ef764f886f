// Package tui implements a terminal front end for the login form.
package tui

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/loginform"
	"github.com/DukeRupert/pakipark/internal/navigation"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E3D2F"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6B20"))
	labelStyle   = lipgloss.NewStyle().Width(14)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	navStyle     = lipgloss.NewStyle().Faint(true)
)

// stateChangedMsg tells the model the form has a new state.
type stateChangedMsg struct{}

// submissionDoneMsg is delivered when a submission resolves.
type submissionDoneMsg struct {
	feedback loginform.Feedback
	err      error
}

// Model is the Bubble Tea model for the login screen.
type Model struct {
	ctx     context.Context
	form    *loginform.Controller
	history *navigation.History
	exited  *atomic.Bool
	changed chan struct{}

	state loginform.FormState
	focus int
}

// New creates a model driving form. The model starts on the login page.
func New(ctx context.Context, form *loginform.Controller) Model {
	exited := &atomic.Bool{}
	changed := make(chan struct{}, 1)

	// Observers run on whichever goroutine changed the form, including the
	// event loop itself, so they only leave a signal and never block.
	form.Observe(func(loginform.FormState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	return Model{
		ctx:     ctx,
		form:    form,
		history: navigation.NewHistory(navigation.PathLogin, func() { exited.Store(true) }),
		exited:  exited,
		changed: changed,
		state:   form.State(),
	}
}

// Init starts listening for form changes.
func (m Model) Init() tea.Cmd {
	return waitForChange(m.changed)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

// fields returns the inputs shown for the current identity mode, in tab order.
func (m Model) fields() []loginform.Field {
	if m.state.IdentityMode == domain.IdentityModeEmail {
		return []loginform.Field{loginform.FieldEmail, loginform.FieldPassword}
	}
	return []loginform.Field{loginform.FieldCountryCode, loginform.FieldPhone, loginform.FieldPassword}
}

func (m Model) focused() loginform.Field {
	fields := m.fields()
	return fields[m.focus%len(fields)]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		m.state = m.form.State()
		return m, waitForChange(m.changed)

	case submissionDoneMsg:
		m.state = m.form.State()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.history.Current() != navigation.PathLogin {
			return m.updatePage(msg)
		}
		return m.updateLogin(msg)
	}

	return m, nil
}

// updatePage handles keys on the forgot-password and sign-up pages.
func (m Model) updatePage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.history.GoBack()
		if m.exited.Load() {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Typed text first, so pasting "tab" is text and not a key name.
	switch msg.Type {
	case tea.KeyRunes:
		return m.insert(string(msg.Runes)), nil
	case tea.KeySpace:
		return m.insert(" "), nil
	case tea.KeyBackspace:
		return m.deleteLast(), nil
	}

	switch msg.String() {
	case "esc":
		m.history.GoBack()
		if m.exited.Load() {
			return m, tea.Quit
		}
		return m, nil

	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.fields())
		return m, nil

	case "shift+tab", "up":
		n := len(m.fields())
		m.focus = (m.focus + n - 1) % n
		return m, nil

	case "ctrl+t":
		next := domain.IdentityModeEmail
		if m.state.IdentityMode == domain.IdentityModeEmail {
			next = domain.IdentityModePhone
		}
		_ = m.form.SetIdentityMode(next)
		m.state = m.form.State()
		m.focus = 0
		return m, nil

	case "ctrl+r":
		m.form.TogglePasswordVisibility()
		m.state = m.form.State()
		return m, nil

	case "ctrl+f":
		m.history.NavigateTo(navigation.PathForgotPassword)
		return m, nil

	case "ctrl+s":
		m.history.NavigateTo(navigation.PathSignUp)
		return m, nil

	case "enter":
		return m.submit()
	}

	return m, nil
}

// insert appends text to the focused field.
func (m Model) insert(text string) Model {
	if m.state.Submitting {
		return m
	}
	field := m.focused()
	_ = m.form.UpdateField(field, m.state.Value(field)+text)
	m.state = m.form.State()
	return m
}

// deleteLast removes the last character of the focused field.
func (m Model) deleteLast() Model {
	field := m.focused()
	value := m.state.Value(field)
	if m.state.Submitting || value == "" {
		return m
	}
	_, size := utf8.DecodeLastRuneInString(value)
	_ = m.form.UpdateField(field, value[:len(value)-size])
	m.state = m.form.State()
	return m
}

// submit starts a submission and returns a command that waits for it.
func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, err := m.form.Submit(m.ctx)
	m.state = m.form.State()
	if err != nil {
		// Validation failures are already in the form's feedback.
		return m, nil
	}

	ctx := m.ctx
	return m, func() tea.Msg {
		feedback, err := sub.Wait(ctx)
		return submissionDoneMsg{feedback: feedback, err: err}
	}
}

func (m Model) View() string {
	switch m.history.Current() {
	case navigation.PathForgotPassword:
		return m.viewPage("Forgot Password", "Password recovery is not available yet. Please contact PakiPark support.")
	case navigation.PathSignUp:
		return m.viewPage("Sign Up", "Account registration is opening soon.")
	}
	return m.viewLogin()
}

func (m Model) viewPage(title, message string) string {
	return indent(strings.Join([]string{
		titleStyle.Render(title),
		"",
		message,
		"",
		navStyle.Render("esc: back"),
	}, "\n"))
}

func (m Model) viewLogin() string {
	s := m.state

	phoneTab, emailTab := "[Phone]", " Email "
	if s.IdentityMode == domain.IdentityModeEmail {
		phoneTab, emailTab = " Phone ", "[Email]"
	}

	lines := []string{
		titleStyle.Render("Welcome Back!"),
		"Login to continue parking",
		"",
		phoneTab + " " + emailTab,
		"",
	}
	for _, f := range m.fields() {
		lines = append(lines, m.viewField(f))
	}

	button := "[ Login ]"
	if s.Submitting {
		button = "[ Logging in... ]"
	}
	lines = append(lines, "", button)

	switch s.Feedback.Kind {
	case loginform.FeedbackError:
		lines = append(lines, "", errorStyle.Render(s.Feedback.Message))
	case loginform.FeedbackSuccess:
		lines = append(lines, "", successStyle.Render(s.Feedback.Message))
	}

	lines = append(lines, "",
		navStyle.Render("tab: next field  ctrl+t: phone/email  ctrl+r: show/hide password  enter: login"),
		navStyle.Render("ctrl+f: forgot password  ctrl+s: sign up  esc: back"),
	)

	return indent(strings.Join(lines, "\n"))
}

var fieldLabels = map[loginform.Field]string{
	loginform.FieldCountryCode: "Country code",
	loginform.FieldPhone:       "Phone Number",
	loginform.FieldEmail:       "Email",
	loginform.FieldPassword:    "Password",
}

var fieldPlaceholders = map[loginform.Field]string{
	loginform.FieldPhone:    "912 345 6789",
	loginform.FieldEmail:    "Enter your email",
	loginform.FieldPassword: "Enter your password",
}

func (m Model) viewField(f loginform.Field) string {
	value := m.state.Value(f)
	if f == loginform.FieldPassword && !m.state.PasswordVisible {
		value = strings.Repeat("*", utf8.RuneCountInString(value))
	}
	if value == "" {
		value = navStyle.Render(fieldPlaceholders[f])
	}

	cursor := "  "
	if f == m.focused() {
		cursor = focusStyle.Render("> ")
		value += "_"
	}
	return cursor + labelStyle.Render(fieldLabels[f]) + value
}

func indent(block string) string {
	return "    " + strings.ReplaceAll(block, "\n", "\n    ")
}
