// ABOUTME: Shared wiring for CLI subcommands
// ABOUTME: Holds the store, blob storage and logger, and resolves --as identities

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/session"
	"github.com/harperreed/crmlite/storage"
	"golang.org/x/term"
)

// App is what every subcommand runs against.
type App struct {
	Store  *db.Store
	Blobs  *storage.Local
	Logger *log.Logger
	Out    io.Writer

	// IsTTY decides between table and JSON output.
	IsTTY func() bool
}

func NewApp(store *db.Store, blobs *storage.Local, logger *log.Logger) *App {
	return &App{
		Store:  store,
		Blobs:  blobs,
		Logger: logger,
		Out:    os.Stdout,
		IsTTY:  stdoutIsTerminal,
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// as returns a context acting as the local user with email.
func (a *App) as(email string) (context.Context, error) {
	if email == "" {
		return nil, errors.New("--as <email> is required")
	}
	return session.NewResolver(a.Store).Context(context.Background(), email)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
