// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals, acting as a local user
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/crmlite/handlers"
)

// AddDealCommand adds a new deal.
func AddDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	name := fs.String("name", "", "Deal name (required)")
	company := fs.String("company", "", "Client company name (required)")
	value := fs.Float64("value", 0, "Deal value")
	profit := fs.Float64("profit", 0, "Gross profit")
	stage := fs.String("stage", "", "Stage (default COURTING)")
	closeDate := fs.String("close-date", "", "Expected close date (YYYY-MM-DD)")
	probability := fs.Int("probability", 0, "Win probability 0-100 (default 10)")
	forecast := fs.String("forecast", "", "COMMIT, BEST_CASE, PIPELINE or OMIT (default PIPELINE)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	input := handlers.CreateDealInput{
		DealName:          *name,
		ClientCompanyName: *company,
		DealValue:         value,
		GrossProfit:       profit,
		Stage:             *stage,
		ExpectedCloseDate: *closeDate,
		ForecastCategory:  *forecast,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "probability" {
			input.Probability = probability
		}
	})

	h := handlers.NewDealHandlers(app.Store, app.Blobs, app.Logger)
	_, deal, err := h.CreateDeal(ctx, nil, input)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "✓ Deal created: %s (ID: %s)\n", deal.DealName, deal.ID)
	fmt.Fprintf(app.Out, "  Company: %s\n", deal.ClientCompanyName)
	fmt.Fprintf(app.Out, "  Value: $%.2f (%d%%)\n", deal.DealValue, deal.Probability)
	fmt.Fprintf(app.Out, "  Stage: %s\n", deal.Stage)
	return nil
}

// ListDealsCommand lists the deals the user can see. Output is a table on a
// terminal and JSON otherwise.
func ListDealsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	stage := fs.String("stage", "", "Filter by stage")
	asJSON := fs.Bool("json", false, "Print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	h := handlers.NewDealHandlers(app.Store, app.Blobs, app.Logger)
	_, out, err := h.ListDeals(ctx, nil, handlers.ListDealsInput{Stage: *stage})
	if err != nil {
		return err
	}

	if *asJSON || !app.IsTTY() {
		return app.printJSON(out)
	}

	if out.Count == 0 {
		fmt.Fprintln(app.Out, "No deals found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tVALUE\tSTAGE\tPROB\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t-----\t----\t--")

	var total float64
	for _, deal := range out.Deals {
		total += deal.DealValue
		_, _ = fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%d%%\t%s\n",
			deal.DealName, deal.ClientCompanyName, deal.DealValue, deal.Stage, deal.Probability, deal.ID[:8])
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\nTotal: %d deal(s) - $%.2f\n", out.Count, total)
	return nil
}

// DeleteDealCommand deletes a deal with everything attached to it.
func DeleteDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: delete-deal --as <email> <id>")
	}

	ctx, err := app.as(*as)
	if err != nil {
		return err
	}

	h := handlers.NewDealHandlers(app.Store, app.Blobs, app.Logger)
	if _, _, err := h.DeleteDeal(ctx, nil, handlers.DeleteDealInput{ID: fs.Arg(0)}); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "✓ Deleted deal: %s\n", fs.Arg(0))
	return nil
}
