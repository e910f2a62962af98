// Package cli: scan.go implements the "lotscan scan" command, the
// interactive scan station.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/config"
	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/tui"
)

// lotFlags overrides the scanning rules of the config file. Shared by
// scan, export and serve.
type lotFlags struct {
	identifier     string
	lotSize        int
	mode           string
	duplicateScope string
	outputDir      string
}

func (f *lotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.identifier, "identifier", "", "Token kind: serial or imei (default: from config)")
	cmd.Flags().IntVar(&f.lotSize, "lot-size", 0, "Maximum tokens per lot (default: from config)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Ingest mode: single or paste (default: from config)")
	cmd.Flags().StringVar(&f.duplicateScope, "duplicate-scope", "", "Duplicate check: lot or session (default: from config)")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "Output directory (default: from config)")
}

// apply writes the set flags over cfg and re-validates it.
func (f *lotFlags) apply(cfg *config.Config) error {
	if f.identifier != "" {
		cfg.Identifier = f.identifier
	}
	if f.lotSize != 0 {
		cfg.LotSize = f.lotSize
	}
	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.duplicateScope != "" {
		cfg.DuplicateScope = f.duplicateScope
	}
	if f.outputDir != "" {
		cfg.OutputDir = f.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid flags", err)
	}
	return nil
}

// newSession loads the config, applies the flags and starts an empty
// scanning session.
func newSession(flags *lotFlags) (*config.Config, lot.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, lot.Session{}, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, lot.Session{}, err
	}
	sess, err := lot.NewSession(cfg.LotConfig())
	if err != nil {
		return nil, lot.Session{}, model.WrapCLIError(model.ExitConfigError, "invalid lot rules", err)
	}
	VerboseLog("Session %s: %s, lot size %d, %s mode", sess.ID(), cfg.Identifier, cfg.LotSize, cfg.Mode)
	return cfg, sess, nil
}

// NewScanCommand creates the "scan" cobra command.
func NewScanCommand() *cobra.Command {
	flags := &lotFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the interactive scan station",
		Long: `Open the full-screen scan station. Each scanned line is validated and
added to the active lot; a full lot disables input until it is reset.

Keys:
  Enter    submit the scanned line
  ctrl+r   close the active lot and start the next one
  ctrl+e   export all lots to an Excel workbook in the output directory
  Esc      quit

Examples:
  lotscan scan
  lotscan scan --identifier imei --lot-size 50
  lotscan scan --mode paste --duplicate-scope session`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runScan(ctx context.Context, flags *lotFlags) error {
	cfg, sess, err := newSession(flags)
	if err != nil {
		return err
	}

	final, err := tui.Run(ctx, sess, host.NewDirSaver(cfg.OutputDir), tui.Options{
		Station: cfg.StationName(),
	})
	if err != nil {
		return scanFailure(err)
	}

	summary := summarize(final)
	if IsJSONOutput() {
		return printJSON(summary)
	}
	fmt.Printf("Session %s: %d lots, %d scans\n", summary.SessionID, summary.Lots, summary.Tokens)
	return nil
}

// sessionSummary is the JSON output of scan.
type sessionSummary struct {
	SessionID string `json:"sessionId"`
	Lots      int    `json:"lots"`
	Tokens    int    `json:"tokens"`
}

// scanFailure keeps a cancelled station distinguishable for classify.
func scanFailure(err error) error {
	if errors.Is(err, tui.ErrCancelled) {
		return model.WrapCLIError(model.ExitUserCancelled, "scan station cancelled", err)
	}
	return model.WrapCLIError(model.ExitGeneralError, "scan station failed", err)
}

func summarize(s lot.Session) sessionSummary {
	sum := sessionSummary{SessionID: s.ID()}
	for _, l := range s.Lots() {
		sum.Lots++
		sum.Tokens += l.Count()
	}
	return sum
}
