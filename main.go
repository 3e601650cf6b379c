// ABOUTME: Entry point for the crmlite API server, MCP server and CLI
// ABOUTME: Loads configuration, opens the store and routes to a command
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/crmlite/cli"
	"github.com/harperreed/crmlite/config"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/storage"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "SQLite database path (overrides config)")
	dbDriver := flag.String("db-driver", "", "Database driver: sqlite3 or pgx (overrides config)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("crmlite version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dbDriver != "" {
		cfg.DBDriver = *dbDriver
	}
	logger := cfg.Logger(os.Stderr)

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	// config commands don't touch the database
	if len(args) > 0 && args[0] == "config" {
		sub := "show"
		if len(args) > 1 {
			sub = args[1]
		}
		var rest []string
		if len(args) > 2 {
			rest = args[2:]
		}
		switch sub {
		case "show":
			err = cli.ConfigShowCommand(cfg, os.Stdout, rest)
		case "init":
			err = cli.ConfigInitCommand(cfg, os.Stdout, rest)
		default:
			fmt.Printf("Unknown config command: %s\n\n", sub)
			printUsage()
			os.Exit(1)
		}
		if err != nil {
			logger.Fatal("config command failed", "err", err)
		}
		return
	}

	store, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("failed to open database", "driver", cfg.DBDriver, "err", err)
	}
	defer store.Close()

	if *initOnly {
		logger.Info("database initialized", "driver", cfg.DBDriver)
		return
	}

	app := cli.NewApp(store, storage.NewLocal(cfg.UploadDir), logger)

	// Route to top-level command
	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "serve":
		err = cli.ServeCommand(app, cfg.Addr, commandArgs)

	case "mcp":
		err = cli.MCPCommand(app, commandArgs)

	case "crm":
		if len(commandArgs) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		crmArgs := commandArgs[1:]
		switch commandArgs[0] {
		case "add-user":
			err = cli.AddUserCommand(app, crmArgs)
		case "issue-token":
			err = cli.IssueTokenCommand(app, crmArgs)
		case "add-deal":
			err = cli.AddDealCommand(app, crmArgs)
		case "list-deals":
			err = cli.ListDealsCommand(app, crmArgs)
		case "delete-deal":
			err = cli.DeleteDealCommand(app, crmArgs)
		default:
			fmt.Printf("Unknown crm command: %s\n\n", commandArgs[0])
			printUsage()
			os.Exit(1)
		}

	case "viz":
		if len(commandArgs) == 0 {
			fmt.Println("Error: viz requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		vizArgs := commandArgs[1:]
		switch commandArgs[0] {
		case "dashboard":
			err = cli.VizDashboardCommand(app, vizArgs)
		case "pipeline":
			err = cli.VizPipelineCommand(app, vizArgs)
		case "deal":
			err = cli.VizDealCommand(app, vizArgs)
		default:
			fmt.Printf("Unknown viz command: %s\n\n", commandArgs[0])
			printUsage()
			os.Exit(1)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		store.Close()
		logger.Fatal("command failed", "command", command, "err", err)
	}
}

func printUsage() {
	fmt.Printf(`crmlite v%s - sales CRM with a client portal

USAGE:
  crmlite [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       SQLite database path (default: ~/.local/share/crmlite/crm.db)
  --db-driver <driver>   sqlite3 or pgx (postgres reads DATABASE_URL)
  --init                 Initialize database and exit

COMMANDS:
  serve                  Start the REST API
  mcp                    Start the MCP server on stdio
  crm                    User and deal management
  viz                    Dashboard and graphs
  config                 Show or write configuration

SERVER:
  crmlite serve [--addr :8080]
  crmlite mcp --as <email>

CRM COMMANDS:
  crmlite crm add-user      Create a user
    --email <email>           Email address (required)
    --name <name>             Display name (required)
    --role <role>             SALES_REP or CLIENT (default: SALES_REP)
    --company <company>       Client company (required for CLIENT)
    --goal <amount>           Annual sales goal

  crmlite crm issue-token --email <email>   Print a new API token

  crmlite crm add-deal      Add a deal
    --as <email>              Acting sales rep (required)
    --name <name>             Deal name (required)
    --company <company>       Client company (required)
    --value <amount>          Deal value
    --profit <amount>         Gross profit
    --stage <stage>           Stage (default: COURTING)
    --close-date <date>       Expected close date (YYYY-MM-DD)
    --probability <n>         Win probability (default: 10)

  crmlite crm list-deals --as <email> [--stage <stage>] [--json]
  crmlite crm delete-deal --as <email> <id>

VIZ COMMANDS:
  crmlite viz dashboard --as <email>
  crmlite viz pipeline --as <email> [--output <file>]
  crmlite viz deal --as <email> [--output <file>] <id>

CONFIG COMMANDS:
  crmlite config show       Print the effective configuration
  crmlite config init       Write it to the config file

ENVIRONMENT:
  CRMLITE_DB_DRIVER, CRMLITE_DB_PATH, DATABASE_URL, CRMLITE_UPLOAD_DIR,
  CRMLITE_ADDR, CRMLITE_LOG_LEVEL (also read from ./.env)

`, version)
}
