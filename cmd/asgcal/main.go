package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/asgcal/asgcal/internal/auth"
	calclient "github.com/asgcal/asgcal/internal/calendar"
	"github.com/asgcal/asgcal/internal/config"
	"github.com/asgcal/asgcal/internal/importer"
	"github.com/asgcal/asgcal/internal/logging"
	"github.com/asgcal/asgcal/internal/prompt"
	"github.com/asgcal/asgcal/internal/session"
)

type options struct {
	configFile      string
	credentialsPath string
	tokenPath       string
	calendarID      string
	verbose         bool
}

const longHelp = `asgcal turns course assignments into all-day Google Calendar events.

Assignments are read from a CSV file with the columns
    course_key, course_name, asg_name, asg_desc, due_date, due_location
(a header row is optional), or from a JSON/YAML gradebook export. Every
create or delete is shown to you and must be confirmed before the calendar
is touched. Created events can be saved to a results file, which is what
the delete command reads back.

Run without a subcommand for the interactive menu.

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (GOOGLE_CREDENTIALS_PATH, ASGCAL_TOKEN_PATH,
       ASGCAL_TOKEN_STORE, ASGCAL_CALENDAR_ID, ASGCAL_OUTPUT_DIR,
       ASGCAL_DATE_FORMAT, ASGCAL_ICS_EXPORT, ASGCAL_MAX_LIST_RESULTS),
       also read from a .env file in the working directory
    3. Config file (--config, .json or .toml)
    4. Defaults

The Google credentials JSON file should be in the format downloaded from
Google Cloud Console, with an "installed" or "web" section.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "asgcal",
		Short:        "Add course assignments to Google Calendar",
		Long:         longHelp,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.close()
			return app.session.Run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a JSON or TOML config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output (show DEBUG logs)")
	flags.StringVar(&opts.credentialsPath, "credentials", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH env var)")
	flags.StringVar(&opts.tokenPath, "token-path", "", "Path to store the OAuth token (overrides config file and ASGCAL_TOKEN_PATH env var)")
	flags.StringVar(&opts.calendarID, "calendar", "", "Calendar ID to use (overrides config file and ASGCAL_CALENDAR_ID env var)")

	root.AddCommand(
		operationCmd(opts, "list", "Show upcoming calendar events"),
		operationCmd(opts, "create", "Create events from a .csv, .json or .yaml file"),
		operationCmd(opts, "delete", "Delete the events listed in a results file"),
		templateCmd(opts),
	)
	return root
}

func operationCmd(opts *options, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.close()

			ok, err := app.session.Do(cmd.Context(), name)
			if errors.Is(err, prompt.ErrExit) {
				return nil
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s did not complete", name)
			}
			return nil
		},
	}
}

func templateCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty CSV template to the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.InputDir, "template.csv")
			if force {
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("failed to remove existing template: %w", err)
				}
			}

			written, err := importer.WriteTemplate(path, cfg.CSVFields)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote template to %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Template already exists at %s (use --force to replace it)\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing template")
	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(opts.configFile, opts.credentialsPath, opts.tokenPath, opts.calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

type app struct {
	session *session.Session
	log     *slog.Logger
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Debug("close failed", "error", err)
		}
	}
}

// bootstrap prepares the directories, logger and authenticated calendar
// client shared by every operation in the process.
func bootstrap(ctx context.Context, opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	a := &app{}

	logger, closeLog, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Console: os.Stderr,
		Verbose: opts.verbose,
	})
	if err != nil {
		return nil, err
	}
	a.log = logger
	a.closers = append(a.closers, closeLog)
	logger.Debug("configuration loaded", "calendar", cfg.CalendarID, "token_store", cfg.TokenStore, "output_dir", cfg.OutputDir)

	if _, err := importer.WriteTemplate(filepath.Join(cfg.InputDir, "template.csv"), cfg.CSVFields); err != nil {
		logger.Warn("could not write CSV template", "error", err)
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://127.0.0.1:8080", // Will be updated dynamically by auth flow
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}

	tokenStore, closeStore, err := openTokenStore(cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, tokenStore, os.Stdout)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	client, err := calclient.NewClient(ctx, httpClient)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	logger.Debug("calendar client ready")

	a.session = session.New(cfg, client, prompt.New(os.Stdin, os.Stdout), session.WithLogger(logger))
	return a, nil
}

func openTokenStore(cfg *config.Config, logger *slog.Logger) (auth.TokenStore, func() error, error) {
	switch cfg.TokenStore {
	case config.TokenStoreSQLite:
		store, err := auth.OpenSQLiteTokenStore(cfg.TokenDBPath, cfg.Account)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open token database: %w", err)
		}
		logger.Debug("using sqlite token store", "path", cfg.TokenDBPath, "account", cfg.Account)
		return store, store.Close, nil
	default:
		return auth.NewFileTokenStore(cfg.TokenPath), func() error { return nil }, nil
	}
}
