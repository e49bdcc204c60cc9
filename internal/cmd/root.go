package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/autosysadmin/console-cli/internal/alert"
	"github.com/autosysadmin/console-cli/internal/api"
	"github.com/autosysadmin/console-cli/internal/billing"
	"github.com/autosysadmin/console-cli/internal/config"
	"github.com/autosysadmin/console-cli/internal/fleet"
	"github.com/autosysadmin/console-cli/internal/session"
	"github.com/autosysadmin/console-cli/pkg/utils"
)

var (
	rootCmd = &cobra.Command{
		Use:           "console",
		Short:         "Operator console for the autosysadmin fleet backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initApp(cmd)
		},
	}

	cfgFile        string
	activeProfile  string
	overrideAPI    string
	overrideFormat string
	debugEnabled   bool
	insecureTLS    bool

	appOnce sync.Once
	app     *App
)

var version = "dev"

// App carries global CLI state shared across commands.
type App struct {
	Config       *config.Config
	API          *api.Client
	Session      *session.Manager
	Alerts       *alert.Bus
	Billing      *billing.Workflow
	Fleet        *fleet.Monitor
	OutputFormat string
	Debug        bool
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// MustApp returns the initialized application context.
func MustApp() *App {
	if app == nil {
		panic("cli not initialized")
	}
	return app
}

func init() {
	cobra.OnInitialize(func() {
		color.NoColor = false
	})

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONSOLE_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&activeProfile, "profile", "default", "configuration profile")
	rootCmd.PersistentFlags().StringVar(&overrideAPI, "api-url", "", "override API base URL")
	rootCmd.PersistentFlags().StringVar(&overrideFormat, "format", "", "set default output format")
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification when connecting to the API")

	rootCmd.AddCommand(
		newLoginCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newServersCommand(),
		newBillingCommand(),
		newSettingsCommand(),
		newConfigCommand(),
	)
}

func initApp(cmd *cobra.Command) error {
	var initErr error
	appOnce.Do(func() {
		if debugEnabled {
			logrus.SetLevel(logrus.DebugLevel)
		}

		cfgPath := cfgFile
		if cfgPath == "" {
			home, err := config.DefaultHomeDir()
			if err != nil {
				initErr = fmt.Errorf("determine config directory: %w", err)
				return
			}
			cfgPath = filepath.Join(home, "config.yaml")
		}

		cfg, err := config.Load(cfgPath, activeProfile)
		if err != nil {
			initErr = err
			return
		}

		if overrideAPI != "" {
			cfg.APIBaseURL = strings.TrimRight(overrideAPI, "/")
		}
		if overrideFormat != "" {
			cfg.OutputFormat = overrideFormat
		}
		if cfg.HomeDir == "" {
			cfg.HomeDir, _ = config.DefaultHomeDir()
		}

		if err := os.MkdirAll(cfg.HomeDir, 0o700); err != nil {
			initErr = fmt.Errorf("ensure console home: %w", err)
			return
		}

		if err := utils.InitSentry(cfg.SentryDSN, "console-cli@"+version); err != nil {
			logrus.Warnf("error reporting disabled: %v", err)
		}

		apiClient := api.NewClient(cfg.APIBaseURL,
			api.WithTimeout(30*time.Second),
			api.WithUserAgent("console-cli/"+version),
			api.WithInsecureSkipVerify(insecureTLS),
		)

		store := session.NewStore(filepath.Join(cfg.HomeDir, "session.json"))
		manager := session.NewManager(store, apiClient)
		alerts := alert.NewBus(alert.DefaultTTL)

		app = &App{
			Config:       cfg,
			API:          apiClient,
			Session:      manager,
			Alerts:       alerts,
			Billing:      billing.NewWorkflow(apiClient, alerts),
			Fleet:        fleet.NewMonitor(apiClient, alerts),
			OutputFormat: cfg.OutputFormat,
			Debug:        debugEnabled,
		}
	})

	if initErr != nil {
		return initErr
	}

	if app == nil {
		return fmt.Errorf("failed to initialize cli")
	}

	// Cold-start restore before any command but login runs; login starts
	// from whatever state restore produced anyway.
	if cmd.Name() != "login" {
		if err := app.Session.Restore(); err != nil {
			logrus.Warnf("restore session: %v", err)
		}
	}

	return nil
}

func printDebug(format string, args ...interface{}) {
	if app != nil && app.Debug {
		msg := fmt.Sprintf(format, args...)
		color.New(color.FgHiBlack).Fprintln(os.Stderr, "[debug]", msg)
	}
}
