// ABOUTME: Config CLI commands
// ABOUTME: Shows the effective configuration and writes the config file

package cli

import (
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/harperreed/crmlite/config"
)

// ConfigShowCommand prints the effective configuration after file and
// environment layering.
func ConfigShowCommand(cfg *config.Config, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(out, "crmlite configuration")
	fmt.Fprintln(out, "─────────────────────")
	fmt.Fprintf(out, "Config file: %s\n", cfg.Path())
	fmt.Fprintf(out, "DB driver:   %s\n", cfg.DBDriver)
	fmt.Fprintf(out, "Database:    %s\n", redactDSN(cfg.DSN()))
	fmt.Fprintf(out, "Uploads:     %s\n", cfg.UploadDir)
	fmt.Fprintf(out, "Listen:      %s\n", cfg.Addr)
	fmt.Fprintf(out, "Log level:   %s\n", cfg.LogLevel)
	return nil
}

// ConfigInitCommand writes the effective configuration to the config file.
func ConfigInitCommand(cfg *config.Config, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "✓ Config written: %s\n", cfg.Path())
	return nil
}

// redactDSN hides the password in a postgres URL.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
