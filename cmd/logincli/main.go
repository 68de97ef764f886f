// Command logincli runs the login form in the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/DukeRupert/pakipark/internal"
	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/loginform"
	"github.com/DukeRupert/pakipark/internal/service"
	"github.com/DukeRupert/pakipark/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// The terminal belongs to the UI; logs only go to LOG_FILE when set.
	logOut, logCloser := internal.LogOutput(io.Discard, cfg.LogFile, cfg.LogMaxSizeMB)
	defer logCloser.Close()
	logger := internal.NewLogger(logOut, cfg.Env, cfg.LogLevel)

	var authService service.AuthService = service.NewSimulatedAuthService(
		cfg.AuthSimulatedDelay,
		domain.LoginOutcome(cfg.AuthSimulatedOutcome),
	)
	authService = service.WithTimeout(authService, cfg.AuthTimeout)
	authService = service.Instrumented(authService, logger)

	form := loginform.New(authService,
		loginform.WithLogger(logger),
		loginform.WithCountryCode(cfg.DefaultCountryCode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := tea.NewProgram(tui.New(ctx, form), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("terminal client failed: %w", err)
	}

	logger.Info("Terminal client exited", "base_url", cfg.BaseURL)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
