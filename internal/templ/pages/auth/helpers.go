package auth

import (
	"github.com/DukeRupert/pakipark/internal/domain"
	twmerge "github.com/Oudwins/tailwind-merge-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Base classes; state-dependent classes are merged on top with twmerge so a
// later utility replaces a conflicting earlier one.
const (
	modeButtonBase   = "flex-1 rounded-lg px-4 py-2 text-sm font-medium text-gray-500 bg-transparent"
	modeButtonActive = "bg-white text-forest shadow"
	flashBase        = "mt-4 text-sm text-center"
	submitButtonBase = "w-full rounded-lg bg-forest px-4 py-3 font-semibold text-white"
	submitButtonBusy = "bg-forest/60 cursor-not-allowed"
)

func modeButtonClass(active bool) string {
	if active {
		return twmerge.Merge(modeButtonBase, modeButtonActive)
	}
	return modeButtonBase
}

func flashClass(t FlashType) string {
	if t == FlashError {
		return twmerge.Merge(flashBase, "text-red-600")
	}
	return twmerge.Merge(flashBase, "text-green-700")
}

func submitButtonClass(submitting bool) string {
	if submitting {
		return twmerge.Merge(submitButtonBase, submitButtonBusy)
	}
	return submitButtonBase
}

func submitLabel(submitting bool) string {
	if submitting {
		return "Logging in..."
	}
	return "Login"
}

func modeLabel(mode domain.IdentityMode) string {
	return titleCaser.String(string(mode))
}

func passwordInputType(visible bool) string {
	if visible {
		return "text"
	}
	return "password"
}

func passwordToggleLabel(visible bool) string {
	if visible {
		return "Hide password"
	}
	return "Show password"
}

var heroFeatures = []struct{ title, detail string }{
	{"Lightning Fast Booking", "Get your parking spot reserved within seconds"},
	{"100% Secure & Insured", "All parking locations are fully protected"},
	{"24/7 Real-time Tracking", "Monitor your parking reservation every second"},
}

var heroStats = []struct{ value, label string }{
	{"15K+", "Happy Customers"},
	{"50K+", "Reservations"},
	{"4.9", "Rating"},
}
