// Package main provides the porter binary: one acquisition/extraction cycle
// per invocation. It sequences session authentication, content extraction and
// interpretation, and emits a JSON run report for downstream consumers.
// Scheduling (cron or similar) stays outside the binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/porter/pkg/auth"
	"github.com/entrhq/porter/pkg/browser"
	"github.com/entrhq/porter/pkg/config"
	"github.com/entrhq/porter/pkg/extract"
	"github.com/entrhq/porter/pkg/interpret"
	"github.com/entrhq/porter/pkg/logging"
	"github.com/entrhq/porter/pkg/magiclink"
	"github.com/entrhq/porter/pkg/session"
)

const version = "0.1.0"

// cliConfig holds command-line configuration.
type cliConfig struct {
	EnvFile     string
	ProfileFile string
	OutputFile  string
	Timeout     time.Duration
	CheckOnly   bool
	ExtractOnly bool
	ShowVersion bool
}

// runReport is the JSON summary written at the end of a run.
type runReport struct {
	RunID         string             `json:"run_id"`
	Authenticated bool               `json:"authenticated"`
	SessionValid  *bool              `json:"session_valid,omitempty"`
	Method        string             `json:"method,omitempty"`
	RawSize       int                `json:"raw_size,omitempty"`
	CleanedSize   int                `json:"cleaned_size,omitempty"`
	Content       string             `json:"content,omitempty"`
	Records       []interpret.Record `json:"records,omitempty"`
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("porter v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cli.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "shutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		fmt.Fprintf(os.Stderr, "porter: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	var cli cliConfig

	flag.StringVar(&cli.EnvFile, "env", "", "Path to .env file (default: ./.env if present)")
	flag.StringVar(&cli.ProfileFile, "profile", "", "Path to YAML site profile")
	flag.StringVar(&cli.OutputFile, "output", "", "Write the run report to this file instead of stdout")
	flag.DurationVar(&cli.Timeout, "timeout", 0, "Overall run deadline (0 = none)")
	flag.BoolVar(&cli.CheckOnly, "check", false, "Only probe whether the persisted session is still valid")
	flag.BoolVar(&cli.ExtractOnly, "extract-only", false, "Skip interpretation and report the cleaned fragment")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")
	flag.Parse()

	return cli
}

func run(ctx context.Context, cli cliConfig) error {
	cfg, err := config.Load(cli.EnvFile, cli.ProfileFile)
	if err != nil {
		return err
	}

	log, logErr := logging.NewLogger("porter")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging degraded: %v\n", logErr)
	}
	defer log.Close()

	store, err := session.NewFileStore(cfg.SessionPath)
	if err != nil {
		return err
	}

	slot, err := magiclink.NewFileSlot(cfg.MagicLinkPath)
	if err != nil {
		return err
	}

	engine := browser.NewEngine(cfg.BrowserOptions())
	page, err := engine.Start()
	if err != nil {
		return fmt.Errorf("browser start: %w", err)
	}
	// Releases the OS-level browser process on every exit path.
	defer func() {
		if err := engine.Shutdown(); err != nil {
			log.Warnf("browser shutdown: %v", err)
		}
	}()

	controller := auth.NewController(page, store, slot, cfg.Detector(), cfg.AuthConfig(), log)
	report := runReport{RunID: log.RunID()}

	if cli.CheckOnly {
		valid := controller.CheckSession(ctx)
		report.SessionValid = &valid
		report.Authenticated = valid
		return writeReport(&report, cli.OutputFile)
	}

	if err := controller.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	report.Authenticated = true

	// Extraction always targets the protected page, whichever page the
	// login flow happened to end on.
	if err := page.Navigate(ctx, cfg.ProtectedURL); err != nil {
		return fmt.Errorf("protected page: %w", err)
	}

	pipeline := extract.New(cfg.ExtractConfig(), log)
	result, err := pipeline.Run(page)
	if err != nil {
		return err
	}

	report.Method = result.Method
	report.RawSize = result.RawSize
	report.CleanedSize = result.CleanedSize

	if cli.ExtractOnly {
		report.Content = result.Content
		return writeReport(&report, cli.OutputFile)
	}

	interpreter, err := interpret.NewOpenAI("",
		interpret.WithModel(cfg.Model),
		interpret.WithMaxPromptTokens(cfg.MaxPromptTokens),
		interpret.WithLogger(log),
	)
	if err != nil {
		return err
	}

	records, err := interpreter.Interpret(ctx, result)
	if err != nil {
		return fmt.Errorf("interpretation: %w", err)
	}
	report.Records = records

	return writeReport(&report, cli.OutputFile)
}

func writeReport(report *runReport, outputFile string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	data = append(data, '\n')

	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("failed to write run report: %w", err)
		}
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}
