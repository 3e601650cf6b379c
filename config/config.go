// ABOUTME: Runtime configuration for the server, MCP and CLI entry points
// ABOUTME: Layers XDG defaults, a JSON config file, .env and CRMLITE_* environment overrides

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/harperreed/crmlite/db"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG data directory.
	AppName = "crmlite"

	// ConfigFileName is where we store local config.
	ConfigFileName = "config.json"

	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// Config holds everything needed to open the store and serve requests.
type Config struct {
	DataDir string `json:"-"`

	// DBDriver is sqlite3 (default) or pgx.
	DBDriver string `json:"db_driver,omitempty"`

	// DBPath is the SQLite file; DatabaseURL is the PostgreSQL DSN.
	DBPath      string `json:"db_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`

	UploadDir string `json:"upload_dir,omitempty"`
	Addr      string `json:"addr,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
}

// DefaultDataDir is $XDG_DATA_HOME/crmlite.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Default returns a config rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:   dataDir,
		DBDriver:  db.DriverSQLite,
		DBPath:    filepath.Join(dataDir, "crm.db"),
		UploadDir: filepath.Join(dataDir, "uploads"),
		Addr:      DefaultAddr,
		LogLevel:  DefaultLogLevel,
	}
}

// Load reads ./.env and the config under the default data directory.
func Load() (*Config, error) {
	return LoadFrom(DefaultDataDir(), ".env")
}

// LoadFrom builds the config from defaults rooted at dataDir, then the config
// file in dataDir, then envFile (missing is fine), then the environment.
// Variables already set in the environment win over envFile.
func LoadFrom(dataDir, envFile string) (*Config, error) {
	cfg := Default(dataDir)

	data, err := os.ReadFile(cfg.Path())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.Path(), err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	for name, dst := range map[string]*string{
		"CRMLITE_DB_DRIVER":  &c.DBDriver,
		"CRMLITE_DB_PATH":    &c.DBPath,
		"DATABASE_URL":       &c.DatabaseURL,
		"CRMLITE_UPLOAD_DIR": &c.UploadDir,
		"CRMLITE_ADDR":       &c.Addr,
		"CRMLITE_LOG_LEVEL":  &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the driver and that its data source is set.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case db.DriverSQLite, "sqlite":
		if c.DBPath == "" {
			return errors.New("db_path is required for sqlite")
		}
	case db.DriverPostgres, "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// DSN is the data source for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == db.DriverPostgres || c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}

// Save persists the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.Path(), data, 0600)
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          AppName,
		ReportTimestamp: true,
		Level:           level,
	})
}
