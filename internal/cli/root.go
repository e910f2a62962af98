// Package cli implements the cobra-based CLI commands for lotscan.
//
// Each subcommand (scan, export, serve, login, status, label) is defined in
// its own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/config"
	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/inventory"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/session"
	"github.com/mmr-tortoise/lotscan/internal/tui"
	"github.com/mmr-tortoise/lotscan/internal/workbook"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput switches command output to JSON for scripts.
	jsonOutput bool

	// verbose prints additional diagnostics to stderr.
	verbose bool

	// configPath overrides the default config file location.
	configPath string
)

// Version, Commit and Date are injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lotscan",
		Short: "Barcode lot scanner and Excel exporter",
		Long: `lotscan groups scanned serial numbers or IMEIs into numbered lots
of a fixed size and exports them as an Excel workbook.

Scan interactively, feed token lists from files, or run a local HTTP
endpoint for fixed scanners. Master carton, mono, sticker and BIS labels
are rendered from the inventory API.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <user config dir>/lotscan/config.jsonc)")

	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewLogoutCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewLabelCommand())

	return rootCmd
}

// Execute runs the root command and translates the returned error into an
// exit code. SIGINT and SIGTERM cancel the command context.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	cliErr := classify(err)
	printError(cliErr.Message, cliErr.Err)
	os.Exit(int(cliErr.Code))
}

// classify maps any command error onto a CLIError. Commands return
// CLIErrors for the failures they anticipate; the rest are matched here.
func classify(err error) *model.CLIError {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var (
		verr   *lot.ValidationError
		lerr   *lot.ListingError
		perr   *host.PersistenceError
		apiErr *inventory.APIError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, tui.ErrCancelled):
		return model.NewCLIError(model.ExitUserCancelled, "cancelled")
	case errors.Is(err, workbook.ErrNothingToExport):
		return model.NewCLIError(model.ExitNothingToExport, "No data to export.")
	case errors.As(err, &verr), errors.As(err, &lerr):
		return model.NewCLIError(model.ExitValidationError, err.Error())
	case errors.As(err, &perr):
		return model.NewCLIError(model.ExitPersistenceError, err.Error())
	case errors.Is(err, session.ErrNotSignedIn), errors.Is(err, inventory.ErrNoCredentials):
		return model.NewCLIError(model.ExitNotSignedIn, "not signed in, run 'lotscan login' first")
	case errors.As(err, &apiErr):
		return model.WrapCLIError(model.ExitAPIError, "inventory API request failed", err)
	default:
		return model.NewCLIError(model.ExitGeneralError, err.Error())
	}
}

// printError writes the error to stderr as text or, with --json, as an
// error object.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to format JSON output", err)
	}
	fmt.Println(string(data))
	return nil
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	VerboseLog("Server: %s", cfg.Server)
	VerboseLog("Output directory: %s", cfg.OutputDir)
	return cfg, nil
}
