// Package main provides the tribunal binary entry point.
// Tribunal runs adversarial multi-agent reviews of business documents:
// a panel of analyst roles attacks a submission over ordered phases and a
// judge delivers a structured verdict grounded in the accumulated evidence.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	// Register LLM providers via init()
	_ "github.com/c360studio/tribunal/llm/providers"

	"github.com/spf13/cobra"

	"github.com/c360studio/tribunal/review"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "tribunal"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Adversarial document review service",
		Long: `Tribunal reviews business documents adversarially: analyst roles
(skeptic, customer, market, builder) attack a submission over ordered
phases, a cross-examiner probes the defense, and a judge delivers a
structured verdict with a scorecard, critical flaws, and a test plan.

Completed reviews are embedded and indexed so future reviews are
enriched with the outcomes of similar past cases.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(reviewCmd(&configPath, &logLevel))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd(configPath, logLevel *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr != "" {
				app.cfg.Server.Addr = addr
			}
			return app.Serve()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func reviewCmd(configPath, logLevel *string) *cobra.Command {
	var (
		mode   string
		domain string
		url    string
	)

	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Review a document and print the verdict",
		Long: `Review runs one session synchronously. The document is read from the
given file, from stdin when no file is given, or fetched from --url.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			var reviewMode review.Mode
			switch strings.ToLower(mode) {
			case "":
				reviewMode = review.Mode(app.cfg.Review.Mode)
			case "full":
				reviewMode = review.ModeFull
			case "short":
				reviewMode = review.ModeShort
			default:
				return fmt.Errorf("invalid mode %q: must be full or short", mode)
			}

			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return app.ReviewOnce(cmd.Context(), file, url, reviewMode, domain)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Review mode: full or short (default from config)")
	cmd.Flags().StringVar(&domain, "domain", "", "Domain override (skips automatic detection)")
	cmd.Flags().StringVar(&url, "url", "", "Fetch the document from this URL instead of a file")
	return cmd
}

// newLogger configures slog to stderr at the requested level and installs it
// as the default.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
