// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/crmlite/handlers"
	"github.com/harperreed/crmlite/viz"
)

// VizDashboardCommand prints the rep's styled dashboard.
func VizDashboardCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	stats, err := handlers.NewDashboardHandlers(app.Store).Dashboard(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(app.Out, viz.RenderDashboard(stats))
	return nil
}

// VizPipelineCommand generates a deal pipeline graph.
func VizPipelineCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("viz pipeline", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	dot, err := handlers.NewVizHandlers(app.Store).PipelineGraph(ctx)
	if err != nil {
		return err
	}
	return writeGraph(app, *output, dot)
}

// VizDealCommand generates a graph of one deal's stakeholders and competitors.
func VizDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("viz deal", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("deal ID required")
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	dot, err := handlers.NewVizHandlers(app.Store).DealGraph(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return writeGraph(app, *output, dot)
}

func writeGraph(app *App, output, dot string) error {
	if output != "" {
		return os.WriteFile(output, []byte(dot), 0644)
	}
	fmt.Fprintln(app.Out, dot)
	return nil
}
