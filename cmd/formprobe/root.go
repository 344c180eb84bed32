package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "formprobe",
	Short: "Smoke-test lead forms in a headless browser",
	Long: "Formprobe fills and submits lead-capture forms in headless Chrome, checks autofill, " +
		"tracking parameters and the confirmation redirect, and reports failures by chat webhook and email.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := parseLevel(logLevel); err != nil {
			return err
		}
		switch logFormat {
		case "auto", "text", "json":
			return nil
		default:
			return fmt.Errorf("unknown log format %q (want auto, text or json)", logFormat)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format (auto, text, json)")
	registerOptionFlags(rootCmd)
}

// setupLogger builds the process logger. In auto mode it writes text to a
// terminal and JSON otherwise.
func setupLogger() *slog.Logger {
	level, _ := parseLevel(logLevel)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if useText(logFormat, os.Stderr.Fd()) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func useText(format string, fd uintptr) bool {
	switch format {
	case "text":
		return true
	case "json":
		return false
	default:
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
