// Package cli: export.go implements the "lotscan export" command.
//
// export is the non-interactive counterpart of the scan station: it reads
// either one token per line (as a keyboard-wedge scanner would type them)
// or a lot listing copied from the station, groups the tokens into lots,
// and writes the Excel workbook.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/workbook"
)

type exportFlags struct {
	lotFlags

	// strict fails the export when any line is rejected.
	strict bool
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Build an Excel workbook from a token list or lot listing",
		Long: `Read tokens from a file (or stdin when no file is given), group them into
lots and save the workbook as LOTS_<date>.xlsx in the output directory.

The input is either one token per line or a lot listing as shown by the
scan station ("=================== LOT [1] | COUNT: [30]" blocks).
Rejected lines are reported on stderr and skipped unless --strict is set.

Examples:
  lotscan export serials.txt
  lotscan export --identifier imei --lot-size 50 imeis.txt
  cat listing.txt | lotscan export -o - > lots.xlsx`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "cannot open input", err)
				}
				defer f.Close()
				in = f
			}
			return runExport(cmd.Context(), in, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Fail without writing when any line is rejected")

	return cmd
}

func runExport(ctx context.Context, in io.Reader, flags *exportFlags) error {
	toStdout := flags.outputDir == "-"
	if toStdout {
		// "-" is not a directory; keep the configured one for validation.
		flags.outputDir = ""
	}

	cfg, sess, err := newSession(&flags.lotFlags)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to read input", err)
	}

	lots, rejections, err := collectLots(sess, string(data))
	if err != nil {
		return err
	}
	for _, r := range rejections {
		fmt.Fprintf(os.Stderr, "Rejected %s\n", r)
	}
	if flags.strict && len(rejections) > 0 {
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("%d lines rejected, nothing written", len(rejections)))
	}

	art, err := workbook.Export(lots, workbook.Options{
		SessionID: sess.ID(),
		Creator:   cfg.StationName(),
		Now:       time.Now(),
	})
	if err != nil {
		return err
	}

	var saver host.Saver = host.NewDirSaver(cfg.OutputDir)
	if toStdout {
		saver = host.StdoutSaver()
	}
	path, err := saver.Save(ctx, art.FileName, art.Data)
	if err != nil {
		return model.WrapCLIError(model.ExitPersistenceError, "failed to save workbook", err)
	}
	VerboseLog("Wrote %d bytes", len(art.Data))

	result := exportResult{
		File:      art.FileName,
		Path:      path,
		SessionID: sess.ID(),
		Lots:      art.Lots,
		Tokens:    art.Tokens,
		Rejected:  make([]rejectionJSON, 0, len(rejections)),
	}
	for _, r := range rejections {
		result.Rejected = append(result.Rejected, rejectionJSON{
			Line:   r.Line,
			Input:  r.Input,
			Reason: string(r.Err.Reason),
			Error:  r.Err.Message,
		})
	}

	// stdout carries the workbook itself
	if toStdout {
		fmt.Fprintf(os.Stderr, "Exported %d lots (%d scans)\n", result.Lots, result.Tokens)
		return nil
	}
	if IsJSONOutput() {
		return printJSON(result)
	}
	fmt.Printf("Saved %d lots (%d scans) to %s\n", result.Lots, result.Tokens, result.Path)
	return nil
}

// exportResult is the JSON output of export.
type exportResult struct {
	File      string          `json:"file"`
	Path      string          `json:"path"`
	SessionID string          `json:"sessionId"`
	Lots      int             `json:"lots"`
	Tokens    int             `json:"tokens"`
	Rejected  []rejectionJSON `json:"rejected"`
}

type rejectionJSON struct {
	Line   int    `json:"line"`
	Input  string `json:"input"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// collectLots turns the export input into lots. A lot listing is parsed as
// is, after checking no lot exceeds the lot size of sess; anything else is
// fed line by line through sess.
func collectLots(sess lot.Session, text string) ([]lot.Lot, []lot.Rejection, error) {
	if lot.LooksLikeListing(text) {
		lots, err := lot.ParseListing(text)
		if err != nil {
			return nil, nil, err
		}
		maxSize := sess.Config().MaxSize
		for _, l := range lots {
			if l.Count() > maxSize {
				return nil, nil, &lot.ListingError{
					Lot:     l.Number,
					Problem: fmt.Sprintf("holds %d tokens, lot size is %d", l.Count(), maxSize),
				}
			}
		}
		VerboseLog("Parsed lot listing with %d lots", len(lots))
		return lots, nil, nil
	}

	final, rejections, err := lot.Feed(sess, strings.NewReader(text))
	if err != nil {
		return nil, nil, err
	}
	return final.Lots(), rejections, nil
}
