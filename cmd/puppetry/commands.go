package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahul/puppetry/internal/gateway"
	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/runner"
	"github.com/rahul/puppetry/internal/server"
	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
)

var (
	serveFlagAddr    string
	runFlagLoops     int
	runFlagClose     bool
	runFlagProduct   string
	runFlagVariables map[string]string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if flagColor {
			observability.PrintBanner(os.Stdout, true)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(a.runner, a.presets, a.history)
		srv.StaticDir = a.cfg.App.Static

		if tgCfg, ok := a.cfg.GetTelegramConfig(); ok {
			tg, err := gateway.NewTelegramGateway(tgCfg.Token, a.runner, a.presets, tgCfg.AllowedChats)
			if err != nil {
				return fmt.Errorf("telegram gateway: %w", err)
			}
			a.runner.Notifier = tg
			var chat gateway.Messenger = tg
			go func() {
				if err := chat.Start(); err != nil {
					log.Printf("Telegram gateway stopped: %v", err)
				}
			}()
			defer chat.Stop()
			if err := gateway.Broadcast(chat, tg.Chats(), fmt.Sprintf("%s is online", a.cfg.App.Name)); err != nil {
				log.Printf("Error announcing startup: %v", err)
			}
		}

		go heartbeat(ctx, a.events)

		addr := a.cfg.App.Addr
		if serveFlagAddr != "" {
			addr = serveFlagAddr
		}
		httpSrv := &http.Server{Addr: addr, Handler: srv.Router(), ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() {
			if a.cfg.App.TLSEnabled() {
				log.Printf("Listening on https://%s", addr)
				errCh <- httpSrv.ListenAndServeTLS(a.cfg.App.TLSCert, a.cfg.App.TLSKey)
				return
			}
			log.Printf("Listening on http://%s", addr)
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}

func heartbeat(ctx context.Context, events *observability.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.Heartbeat()
			events.LogHeartbeat()
			if flagColor {
				observability.PrintLiveStatus(true)
			}
		}
	}
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a YAML or JSON step file",
	Long: `Run a step file once against the browser.

The file holds a bare step list or an object with steps, loops,
closeBrowser, productURL and variables. Flags override the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		req, err := runner.ParseRequest(data)
		if err != nil {
			return err
		}
		if runFlagLoops > 0 {
			req.Loops = steps.NumberOf(float64(runFlagLoops))
		}
		if cmd.Flags().Changed("close") {
			req.CloseBrowser = runFlagClose
		}
		if runFlagProduct != "" {
			req.ProductURL = runFlagProduct
		}
		for k, v := range runFlagVariables {
			if req.Variables == nil {
				req.Variables = map[string]string{}
			}
			req.Variables[k] = v
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := a.runner.Run(ctx, req, printLine); err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue <file>",
	Short: "Run an exported queue of presets in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		q := runner.NewQueue(a.runner, a.presets)
		q.Log = printLine
		if err := q.Import(f); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			q.Stop()
		}()
		if err := q.Start(ctx); err != nil {
			return err
		}

		failed := 0
		for _, it := range q.Items() {
			fmt.Printf("%-9s %s", it.State, it.PuppetName)
			if it.Error != "" {
				fmt.Printf(": %s", it.Error)
				failed++
			}
			fmt.Println()
		}
		if failed > 0 {
			return fmt.Errorf("%d queue item(s) failed", failed)
		}
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"puppets"},
	Short:   "Manage saved presets",
}

var presetsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List preset names",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigOnly()
		if err != nil {
			return err
		}
		names, err := store.NewPresetStore(cfg.App.Presets).Names()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No presets found")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var presetsImportCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Save a step file as a named preset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		req, err := runner.ParseRequest(data)
		if err != nil {
			return err
		}
		cfg, err := loadConfigOnly()
		if err != nil {
			return err
		}
		p := store.PresetFromRequest(req.Steps, req.CloseBrowser, req.Loops.Int(0), req.ProductURL, req.Variables)
		if err := store.NewPresetStore(cfg.App.Presets).Save(args[0], p); err != nil {
			return err
		}
		fmt.Printf("Saved preset %s (%d steps)\n", args[0], len(p.Steps))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "", "listen address (overrides app.addr)")

	runCmd.Flags().IntVarP(&runFlagLoops, "loops", "n", 0, "number of passes over the steps")
	runCmd.Flags().BoolVar(&runFlagClose, "close", false, "close the browser after each pass")
	runCmd.Flags().StringVar(&runFlagProduct, "product-url", "", "product URL for loadPrintifyProductURL")
	runCmd.Flags().StringToStringVar(&runFlagVariables, "var", nil, "variable as name=value (repeatable)")

	presetsCmd.AddCommand(presetsListCmd, presetsImportCmd)
}
