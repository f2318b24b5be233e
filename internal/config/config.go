package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultCSVFields is the fixed column order of the tabular input.
var DefaultCSVFields = []string{
	"course_key",   // "COSC-2436"
	"course_name",  // "Prg III"
	"asg_name",     // "Lab1"
	"asg_desc",     // "Use course materials for lab 1."
	"due_date",     // "2024-10-21" (operator-supplied format)
	"due_location", // "Blackboard"
}

const (
	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"

	defaultDateFormat     = "%Y-%m-%d"
	defaultMaxListResults = 50
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for asgcal. It is built once at startup and
// handed to every component that needs it.
type Config struct {
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty" toml:"google_credentials_path"`

	// Token persistence: "file" keeps the token as JSON at TokenPath,
	// "sqlite" keeps it in the tokens table of TokenDBPath keyed by Account.
	TokenStore  string `json:"token_store,omitempty" toml:"token_store"`
	TokenPath   string `json:"token_path,omitempty" toml:"token_path"`
	TokenDBPath string `json:"token_db_path,omitempty" toml:"token_db_path"`
	Account     string `json:"account,omitempty" toml:"account"`

	CalendarID string `json:"calendar_id,omitempty" toml:"calendar_id"`

	InputDir      string `json:"input_dir,omitempty" toml:"input_dir"`
	OutputDir     string `json:"output_dir,omitempty" toml:"output_dir"`
	EventsOutfile string `json:"events_outfile,omitempty" toml:"events_outfile"`
	ICSOutfile    string `json:"ics_outfile,omitempty" toml:"ics_outfile"`
	ICSExport     bool   `json:"ics_export,omitempty" toml:"ics_export"`
	LogFile       string `json:"log_file,omitempty" toml:"log_file"`

	MaxListResults int      `json:"max_list_results,omitempty" toml:"max_list_results"`
	DateFormat     string   `json:"date_format,omitempty" toml:"date_format"`
	CSVFields      []string `json:"csv_fields,omitempty" toml:"csv_fields"`
}

// LoadConfigFromFile loads configuration from a JSON or TOML file, chosen by extension.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
func LoadConfig(configFile string, credentialsPathFlag, tokenPathFlag, calendarIDFlag string) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	if v := os.Getenv("GOOGLE_CREDENTIALS_PATH"); v != "" {
		config.GoogleCredentialsPath = v
	}
	if v := os.Getenv("ASGCAL_TOKEN_PATH"); v != "" {
		config.TokenPath = v
	}
	if v := os.Getenv("ASGCAL_TOKEN_STORE"); v != "" {
		config.TokenStore = v
	}
	if v := os.Getenv("ASGCAL_CALENDAR_ID"); v != "" {
		config.CalendarID = v
	}
	if v := os.Getenv("ASGCAL_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}
	if v := os.Getenv("ASGCAL_DATE_FORMAT"); v != "" {
		config.DateFormat = v
	}
	if v := os.Getenv("ASGCAL_ICS_EXPORT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ASGCAL_ICS_EXPORT value: %w", err)
		}
		config.ICSExport = b
	}
	if v := os.Getenv("ASGCAL_MAX_LIST_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ASGCAL_MAX_LIST_RESULTS value: %w", err)
		}
		config.MaxListResults = n
	}

	// Step 3: Override with command-line flags (highest priority)
	if credentialsPathFlag != "" {
		config.GoogleCredentialsPath = credentialsPathFlag
	}
	if tokenPathFlag != "" {
		config.TokenPath = tokenPathFlag
	}
	if calendarIDFlag != "" {
		config.CalendarID = calendarIDFlag
	}

	// Step 4: Apply defaults
	config.applyDefaults()

	if err := config.check(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.TokenStore == "" {
		c.TokenStore = TokenStoreFile
	}
	if c.TokenPath == "" {
		c.TokenPath = "token.json"
	}
	if c.TokenDBPath == "" {
		c.TokenDBPath = "asgcal.db"
	}
	if c.Account == "" {
		c.Account = "default"
	}
	if c.CalendarID == "" {
		c.CalendarID = "primary"
	}
	if c.InputDir == "" {
		c.InputDir = "input"
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	// Output files follow the output directory unless set explicitly.
	if c.EventsOutfile == "" {
		c.EventsOutfile = filepath.Join(c.OutputDir, "events.json")
	}
	if c.ICSOutfile == "" {
		c.ICSOutfile = filepath.Join(c.OutputDir, "events.ics")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.OutputDir, "debug.log")
	}
	if c.MaxListResults == 0 {
		c.MaxListResults = defaultMaxListResults
	}
	if c.DateFormat == "" {
		c.DateFormat = defaultDateFormat
	}
	if len(c.CSVFields) == 0 {
		c.CSVFields = append([]string(nil), DefaultCSVFields...)
	}
}

// check validates values that are wrong regardless of which command runs.
func (c *Config) check() error {
	if c.TokenStore != TokenStoreFile && c.TokenStore != TokenStoreSQLite {
		return fmt.Errorf("token_store must be '%s' or '%s', got '%s'", TokenStoreFile, TokenStoreSQLite, c.TokenStore)
	}
	if c.MaxListResults < 1 {
		return fmt.Errorf("max_list_results must be positive, got %d", c.MaxListResults)
	}
	if len(c.CSVFields) != len(DefaultCSVFields) {
		return fmt.Errorf("csv_fields must name exactly %d columns, got %d", len(DefaultCSVFields), len(c.CSVFields))
	}
	return nil
}

// RequireCredentials reports an error when no Google credentials file is configured.
// Commands that never talk to the calendar (template) skip it.
func (c *Config) RequireCredentials() error {
	if c.GoogleCredentialsPath == "" {
		return fmt.Errorf("google_credentials_path must be provided via --credentials flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}
	return nil
}

// DateField returns the name of the due date column.
func (c *Config) DateField() string {
	return c.CSVFields[4]
}
