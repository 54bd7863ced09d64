package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahul/puppetry/internal/browser"
	"github.com/rahul/puppetry/internal/governance"
	"github.com/rahul/puppetry/internal/listing"
	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/runner"
	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
	"github.com/rahul/puppetry/internal/upload"
	"github.com/rahul/puppetry/pkg/config"
)

var (
	flagConfig string
	flagColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "puppetry",
	Short: "puppetry - declarative browser step runner",
	Long: `puppetry drives a persistent Chromium page through JSON or YAML step lists.

Quick start:
  puppetry serve                         # HTTP API on :3000
  puppetry run steps.yaml                # Run a step file once
  puppetry run steps.yaml --loops 3      # Run it three times
  puppetry presets list                  # Show saved presets
  puppetry queue queue.json              # Run an exported queue`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flagColor = observability.IsTerminal(os.Stderr)
		log.SetOutput(observability.NewTermWriter())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.json", "path to the config file")
	rootCmd.AddCommand(serveCmd, runCmd, queueCmd, presetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	events  *observability.Logger
	session *browser.Session
	presets *store.PresetStore
	history *store.HistoryStore
	runner  *runner.Runner
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	actionTimeout, navTimeout, err := cfg.Browser.Timeouts()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger()

	gov := governance.NewDefaultPolicyEngine()
	for _, kind := range cfg.Policy.DeniedKinds {
		gov.DenyKind(kind)
	}
	for _, pattern := range cfg.Policy.DeniedPatterns {
		if err := gov.DenyArguments(pattern); err != nil {
			return nil, fmt.Errorf("policy pattern %q: %w", pattern, err)
		}
	}
	for _, host := range cfg.Policy.AllowedHosts {
		gov.AllowHost(host)
	}

	interp := steps.NewInterpreter()
	interp.Policy = gov
	interp.Events = logger
	interp.NavigationTimeout = navTimeout
	interp.MaxSteps = cfg.Runner.MaxSteps

	session := browser.NewSession(browser.Options{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		UserDataDir:   cfg.Browser.UserDataDir,
		WindowWidth:   cfg.Browser.Width,
		WindowHeight:  cfg.Browser.Height,
		ActionTimeout: actionTimeout,
		NavTimeout:    navTimeout,
	})

	// Without a key the listing steps log and skip.
	prompts := listing.NewPromptManager(cfg.App.Prompts)
	assistant := listing.NewAssistant(nil, prompts, logger)
	if pName, pCfg := cfg.GetDefaultProvider(); pName != "" && pCfg.APIKey != "" {
		model, err := listing.NewOpenAIModel(pCfg.APIKey, pCfg.Model, pCfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pName, err)
		}
		assistant.Model = model
	} else {
		log.Println("No completion provider key configured; listing steps will be skipped")
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		return nil, err
	}

	r := runner.New(session, interp)
	r.Listing = assistant
	r.Uploader = upload.New(logger)
	r.History = history
	r.Events = logger
	r.Description = cfg.Runner.Description
	r.ScreenshotDir = cfg.App.ScreenshotDir
	r.ResetVariablesPerLoop = cfg.Runner.ResetVariablesPerLoop
	r.Reap = browser.ReapStrayProcesses

	return &app{
		cfg:     cfg,
		events:  logger,
		session: session,
		presets: store.NewPresetStore(cfg.App.Presets),
		history: history,
		runner:  r,
	}, nil
}

func (a *app) Close() {
	if err := a.session.Close(); err != nil {
		log.Printf("Error closing browser: %v", err)
	}
	if err := a.history.Close(); err != nil {
		log.Printf("Error closing history: %v", err)
	}
}

// printLine writes one run log line to stdout.
func printLine(line string) {
	fmt.Println(line)
}

func loadConfigOnly() (*config.Config, error) {
	return config.LoadConfig(flagConfig)
}
