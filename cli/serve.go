// ABOUTME: Web server subcommand
// ABOUTME: Runs the REST API until interrupted, then shuts down gracefully
package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/crmlite/web"
)

// ServeCommand starts the REST API on addr, or on --addr when given.
func ServeCommand(app *App, addr string, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("addr", addr, "Address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.NewServer(app.Store, app.Blobs, app.Logger).Start(ctx, *listen)
}
