// ABOUTME: MCP server subcommand
// ABOUTME: Serves the CRM tools, prompts and resources over stdio as one local user
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/crmlite/handlers"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const mcpVersion = "0.2.0"

// NewMCPServer builds the MCP server acting as the user with email. The user
// is looked up again on every request so role and company changes apply
// without a restart.
func NewMCPServer(app *App, email string) *mcp.Server {
	deals := handlers.NewDealHandlers(app.Store, app.Blobs, app.Logger)
	activities := handlers.NewActivityHandlers(app.Store)
	contacts := handlers.NewContactHandlers(app.Store)
	competitors := handlers.NewCompetitorHandlers(app.Store)
	files := handlers.NewFileHandlers(app.Store, app.Blobs, app.Logger)
	dashboard := handlers.NewDashboardHandlers(app.Store)
	graphs := handlers.NewVizHandlers(app.Store)
	users := handlers.NewUserHandlers(app.Store)
	prompts := handlers.NewPromptHandlers(app.Store)
	resources := handlers.NewResourceHandlers(deals)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crmlite",
		Version: mcpVersion,
	}, nil)

	resolver := session.NewResolver(app.Store)
	server.AddReceivingMiddleware(func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			id, err := resolver.ForEmail(ctx, email)
			if err != nil {
				// Handlers answer 401 for a context without an identity.
				app.Logger.Warn("mcp request without identity", "method", method, "err", err)
				return next(ctx, method, req)
			}
			return next(policy.WithIdentity(ctx, id), method, req)
		}
	})

	// Deals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_deals",
		Description: "List the deals you can see, most recently updated first, optionally filtered by stage",
	}, deals.ListDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a deal owned by you (sales reps only)",
	}, deals.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_deal",
		Description: "Get one deal; sales reps also get contacts, competitors, activities and metrics",
	}, deals.GetDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update fields of one of your deals, including its stage",
	}, deals.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete one of your deals with its activities, contacts, competitors and files",
	}, deals.DeleteDeal)

	// Activities
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_activities",
		Description: "List a deal's activities, newest first",
	}, activities.ListActivities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_activity",
		Description: "Log a call, meeting, email or note on a deal",
	}, activities.CreateActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_activity",
		Description: "Delete an activity from one of your deals",
	}, activities.DeleteActivity)

	// Contacts
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List a deal's stakeholders, primary contact first",
	}, contacts.ListContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a stakeholder to a deal; marking it primary demotes the current primary",
	}, contacts.CreateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update a stakeholder on one of your deals",
	}, contacts.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Remove a stakeholder from one of your deals",
	}, contacts.DeleteContact)

	// Competitors
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_competitors",
		Description: "List the competitors on a deal",
	}, competitors.ListCompetitors)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_competitor",
		Description: "Track a competitor on one of your deals",
	}, competitors.CreateCompetitor)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_competitor",
		Description: "Update a competitor's status, strengths or weaknesses",
	}, competitors.UpdateCompetitor)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_competitor",
		Description: "Remove a competitor from one of your deals",
	}, competitors.DeleteCompetitor)

	// Files
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_file",
		Description: "Attach a base64 encoded file to one of your deals as INTERNAL or EXTERNAL",
	}, files.UploadFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_files",
		Description: "List a deal's files; clients only see EXTERNAL files",
	}, files.ListFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_file",
		Description: "Download a file as base64",
	}, files.GetFile)

	// Dashboard, graphs, identity
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "Your YTD closed value, quota progress, stage counts, stale deals and forecast",
	}, dashboard.GetDashboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of your pipeline or of one deal",
	}, graphs.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "whoami",
		Description: "Show the user this server acts as",
	}, users.WhoAmI)

	for _, p := range prompts.Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	server.AddResource(&mcp.Resource{
		URI:         handlers.DealsURI,
		Name:        "deals",
		Description: "The deals you can see",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: handlers.DealURITemplate,
		Name:        "deal",
		Description: "One deal by ID",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	return server
}

// MCPCommand starts the MCP server on stdio.
func MCPCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	as := fs.String("as", "", "Act as the user with this email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Fail at startup rather than on every call.
	if _, err := app.as(*as); err != nil {
		return err
	}

	app.Logger.Info("starting MCP server", "as", *as)
	if err := NewMCPServer(app, *as).Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
