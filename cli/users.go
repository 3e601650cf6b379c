// ABOUTME: User CLI commands
// ABOUTME: Creates sales reps and clients and issues their API tokens
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
)

// AddUserCommand creates a user.
func AddUserCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
	email := fs.String("email", "", "Email address (required)")
	name := fs.String("name", "", "Display name (required)")
	role := fs.String("role", models.RoleSalesRep, "Role (SALES_REP or CLIENT)")
	company := fs.String("company", "", "Client company name (required for CLIENT)")
	goal := fs.Float64("goal", 0, "Annual sales goal (SALES_REP)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *name == "" {
		return fmt.Errorf("--email and --name are required")
	}
	r := strings.ToUpper(*role)
	if r != models.RoleSalesRep && r != models.RoleClient {
		return fmt.Errorf("invalid role %q (valid: %s, %s)", *role, models.RoleSalesRep, models.RoleClient)
	}
	if r == models.RoleClient && strings.TrimSpace(*company) == "" {
		return fmt.Errorf("--company is required for clients")
	}

	user := &models.User{
		Email:       *email,
		Name:        *name,
		Role:        r,
		CompanyName: strings.TrimSpace(*company),
		SalesGoal:   *goal,
	}
	if err := app.Store.CreateUser(context.Background(), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ User created: %s (ID: %s)\n", user.Email, user.ID)
	fmt.Fprintf(app.Out, "  Role: %s\n", user.Role)
	if user.CompanyName != "" {
		fmt.Fprintf(app.Out, "  Company: %s\n", user.CompanyName)
	}
	return nil
}

// IssueTokenCommand prints a new API token for a user. Only its hash is stored.
func IssueTokenCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	email := fs.String("email", "", "User email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	ctx := context.Background()
	user, err := app.Store.GetUserByEmail(ctx, *email)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("no user with email %q", *email)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := app.Store.IssueAPIToken(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(app.Out, token)
	return nil
}
