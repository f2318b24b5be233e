package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	config, err := LoadConfig("", "", "", "")
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.CalendarID != "primary" {
		t.Errorf("Expected CalendarID to default to 'primary', got '%s'", config.CalendarID)
	}
	if config.TokenStore != TokenStoreFile {
		t.Errorf("Expected TokenStore to default to '%s', got '%s'", TokenStoreFile, config.TokenStore)
	}
	if config.EventsOutfile != filepath.Join("output", "events.json") {
		t.Errorf("Expected EventsOutfile to default to 'output/events.json', got '%s'", config.EventsOutfile)
	}
	if config.LogFile != filepath.Join("output", "debug.log") {
		t.Errorf("Expected LogFile to default to 'output/debug.log', got '%s'", config.LogFile)
	}
	if config.MaxListResults != 50 {
		t.Errorf("Expected MaxListResults to default to 50, got %d", config.MaxListResults)
	}
	if config.DateFormat != "%Y-%m-%d" {
		t.Errorf("Expected DateFormat to default to '%%Y-%%m-%%d', got '%s'", config.DateFormat)
	}
	if config.DateField() != "due_date" {
		t.Errorf("Expected DateField to be 'due_date', got '%s'", config.DateField())
	}
	if err := config.RequireCredentials(); err == nil {
		t.Error("RequireCredentials() should fail when no credentials path is configured")
	}
}

func TestLoadConfig_CommandLineFlags(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_PATH", "/env/credentials.json")
	t.Setenv("ASGCAL_TOKEN_PATH", "/env/token.json")
	t.Setenv("ASGCAL_CALENDAR_ID", "env-calendar")

	config, err := LoadConfig("", "/flag/credentials.json", "/flag/token.json", "flag-calendar")
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.GoogleCredentialsPath != "/flag/credentials.json" {
		t.Errorf("Expected GoogleCredentialsPath to be '/flag/credentials.json', got '%s'", config.GoogleCredentialsPath)
	}
	if config.TokenPath != "/flag/token.json" {
		t.Errorf("Expected TokenPath to be '/flag/token.json', got '%s'", config.TokenPath)
	}
	if config.CalendarID != "flag-calendar" {
		t.Errorf("Expected CalendarID to be 'flag-calendar', got '%s'", config.CalendarID)
	}
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	os.Clearenv()
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	configJSON := `{
		"google_credentials_path": "/config/credentials.json",
		"token_store": "sqlite",
		"token_db_path": "/config/asgcal.db",
		"output_dir": "/config/out",
		"ics_export": true,
		"max_list_results": 20
	}`

	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(configPath, "", "", "")
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.GoogleCredentialsPath != "/config/credentials.json" {
		t.Errorf("Expected GoogleCredentialsPath to be '/config/credentials.json', got '%s'", config.GoogleCredentialsPath)
	}
	if config.TokenStore != TokenStoreSQLite {
		t.Errorf("Expected TokenStore to be 'sqlite', got '%s'", config.TokenStore)
	}
	if !config.ICSExport {
		t.Error("Expected ICSExport to be true")
	}
	if config.MaxListResults != 20 {
		t.Errorf("Expected MaxListResults to be 20, got %d", config.MaxListResults)
	}
	// Output files follow output_dir
	if config.EventsOutfile != filepath.Join("/config/out", "events.json") {
		t.Errorf("Expected EventsOutfile under output_dir, got '%s'", config.EventsOutfile)
	}
	if config.ICSOutfile != filepath.Join("/config/out", "events.ics") {
		t.Errorf("Expected ICSOutfile under output_dir, got '%s'", config.ICSOutfile)
	}
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	os.Clearenv()
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "asgcal.toml")

	configTOML := `
google_credentials_path = "/toml/credentials.json"
calendar_id = "school"
date_format = "%m/%d/%Y"
csv_fields = ["key", "course", "name", "desc", "due", "where"]
`
	if err := os.WriteFile(configPath, []byte(configTOML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(configPath, "", "", "")
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.CalendarID != "school" {
		t.Errorf("Expected CalendarID to be 'school', got '%s'", config.CalendarID)
	}
	if config.DateFormat != "%m/%d/%Y" {
		t.Errorf("Expected DateFormat to be '%%m/%%d/%%Y', got '%s'", config.DateFormat)
	}
	if config.DateField() != "due" {
		t.Errorf("Expected DateField to be 'due', got '%s'", config.DateField())
	}
}

func TestLoadConfig_EnvVarsOverrideConfigFile(t *testing.T) {
	os.Clearenv()
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	configJSON := `{
		"google_credentials_path": "/config/credentials.json",
		"token_path": "/config/token.json"
	}`

	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("GOOGLE_CREDENTIALS_PATH", "/env/credentials.json")
	t.Setenv("ASGCAL_ICS_EXPORT", "true")

	config, err := LoadConfig(configPath, "", "", "")
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.TokenPath != "/config/token.json" {
		t.Errorf("Expected TokenPath from config file, got '%s'", config.TokenPath)
	}
	if config.GoogleCredentialsPath != "/env/credentials.json" {
		t.Errorf("Expected GoogleCredentialsPath to be overridden by env var '/env/credentials.json', got '%s'", config.GoogleCredentialsPath)
	}
	if !config.ICSExport {
		t.Error("Expected ICSExport to be enabled by env var")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	os.Clearenv()

	t.Run("token store", func(t *testing.T) {
		t.Setenv("ASGCAL_TOKEN_STORE", "keychain")
		if _, err := LoadConfig("", "", "", ""); err == nil {
			t.Error("LoadConfig() should reject an unknown token store")
		}
	})

	t.Run("max list results", func(t *testing.T) {
		t.Setenv("ASGCAL_MAX_LIST_RESULTS", "-3")
		if _, err := LoadConfig("", "", "", ""); err == nil {
			t.Error("LoadConfig() should reject a negative max_list_results")
		}
	})

	t.Run("ics export", func(t *testing.T) {
		t.Setenv("ASGCAL_ICS_EXPORT", "sometimes")
		if _, err := LoadConfig("", "", "", ""); err == nil {
			t.Error("LoadConfig() should reject a non-boolean ASGCAL_ICS_EXPORT")
		}
	})

	t.Run("csv fields", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.json")
		if err := os.WriteFile(configPath, []byte(`{"csv_fields": ["a", "b"]}`), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}
		if _, err := LoadConfig(configPath, "", "", ""); err == nil {
			t.Error("LoadConfig() should reject a short csv_fields list")
		}
	})
}

func TestLoadGoogleCredentials_Installed(t *testing.T) {
	tempDir := t.TempDir()
	credsPath := filepath.Join(tempDir, "credentials.json")

	credsJSON := `{
		"installed": {
			"client_id": "test-client-id",
			"client_secret": "test-client-secret"
		}
	}`

	if err := os.WriteFile(credsPath, []byte(credsJSON), 0644); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	clientID, clientSecret, err := LoadGoogleCredentials(credsPath)
	if err != nil {
		t.Fatalf("LoadGoogleCredentials() returned an error: %v", err)
	}

	if clientID != "test-client-id" {
		t.Errorf("Expected clientID to be 'test-client-id', got '%s'", clientID)
	}
	if clientSecret != "test-client-secret" {
		t.Errorf("Expected clientSecret to be 'test-client-secret', got '%s'", clientSecret)
	}
}

func TestLoadGoogleCredentials_Web(t *testing.T) {
	tempDir := t.TempDir()
	credsPath := filepath.Join(tempDir, "credentials.json")

	credsJSON := `{
		"web": {
			"client_id": "web-client-id",
			"client_secret": "web-client-secret"
		}
	}`

	if err := os.WriteFile(credsPath, []byte(credsJSON), 0644); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	clientID, clientSecret, err := LoadGoogleCredentials(credsPath)
	if err != nil {
		t.Fatalf("LoadGoogleCredentials() returned an error: %v", err)
	}

	if clientID != "web-client-id" {
		t.Errorf("Expected clientID to be 'web-client-id', got '%s'", clientID)
	}
	if clientSecret != "web-client-secret" {
		t.Errorf("Expected clientSecret to be 'web-client-secret', got '%s'", clientSecret)
	}
}

func TestLoadGoogleCredentials_Missing(t *testing.T) {
	tempDir := t.TempDir()
	credsPath := filepath.Join(tempDir, "credentials.json")

	if err := os.WriteFile(credsPath, []byte(`{}`), 0644); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	if _, _, err := LoadGoogleCredentials(credsPath); err == nil {
		t.Error("LoadGoogleCredentials() should fail without a client_id")
	}
}
