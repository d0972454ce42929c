// Package main implements stellanow-publisher, a command that reads messages
// as JSON lines and delivers them through the StellaNow SDK.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information
const (
	Version = "0.1.0"
	appName = "stellanow-publisher"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Publish events to StellaNow",
		Long:          "stellanow-publisher reads messages as JSON lines and delivers them to the StellaNow broker with at-least-once semantics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", os.Getenv("STELLANOW_CONFIG"),
		"Path to YAML configuration file (env: STELLANOW_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Override log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Override log format: json, text")

	root.AddCommand(newPublishCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return root
}
