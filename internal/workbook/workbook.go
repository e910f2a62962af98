package workbook

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmr-tortoise/lotscan/internal/lot"
)

const (
	// AllLotSheet is the consolidated sheet holding every lot.
	AllLotSheet = "ALL LOT"

	// defaultSheet is the sheet excelize.NewFile creates.
	defaultSheet = "Sheet1"

	tokenColumnWidth = 18
)

// ErrNothingToExport is returned when no lot holds a token.
var ErrNothingToExport = errors.New("no data to export")

// Options controls workbook metadata.
type Options struct {
	// SessionID is stored as the document Identifier property.
	SessionID string

	// Creator is stored as the document Creator property.
	Creator string

	// Now stamps the document and the suggested file name.
	// Zero means time.Now().
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Artifact is a rendered workbook ready to be handed to a host.
type Artifact struct {
	FileName string
	Data     []byte
	Lots     int
	Tokens   int
}

// SheetName returns the name of the per-lot sheet of lot n.
func SheetName(n int) string {
	return fmt.Sprintf("LOT %d", n)
}

// FileName returns the suggested file name for a workbook exported at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("LOTS_%s.xlsx", t.Format(time.DateOnly))
}

// Build renders lots into a new workbook. Lots without tokens are skipped.
// The caller must Close the returned file.
func Build(lots []lot.Lot, opts Options) (*excelize.File, error) {
	lots = nonEmpty(lots)
	if len(lots) == 0 {
		return nil, ErrNothingToExport
	}

	f := excelize.NewFile()
	if err := fill(f, lots, opts); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Export renders lots and returns the xlsx bytes with the suggested file
// name. It does not write anything to disk.
func Export(lots []lot.Lot, opts Options) (*Artifact, error) {
	f, err := Build(lots, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	art := &Artifact{
		FileName: FileName(opts.now()),
		Data:     buf.Bytes(),
	}
	for _, l := range nonEmpty(lots) {
		art.Lots++
		art.Tokens += l.Count()
	}
	return art, nil
}

func fill(f *excelize.File, lots []lot.Lot, opts Options) error {
	if err := f.SetSheetName(defaultSheet, AllLotSheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", AllLotSheet, err)
	}
	if err := f.SetColWidth(AllLotSheet, "A", "B", tokenColumnWidth); err != nil {
		return fmt.Errorf("failed to size sheet %q: %w", AllLotSheet, err)
	}

	row := 1
	for _, l := range lots {
		header := []any{fmt.Sprintf("LOT%d", l.Number), fmt.Sprintf("Count: %d", l.Count())}
		if err := setRow(f, AllLotSheet, row, header); err != nil {
			return err
		}
		row++
		for _, token := range l.Tokens {
			if err := setRow(f, AllLotSheet, row, []any{token}); err != nil {
				return err
			}
			row++
		}
		// blank separator row
		row++
	}

	for _, l := range lots {
		if l.Count() <= 1 {
			continue
		}
		name := SheetName(l.Number)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := f.SetColWidth(name, "A", "A", tokenColumnWidth); err != nil {
			return fmt.Errorf("failed to size sheet %q: %w", name, err)
		}
		for i, token := range l.Tokens {
			if err := setRow(f, name, i+1, []any{token}); err != nil {
				return err
			}
		}
	}

	idx, err := f.GetSheetIndex(AllLotSheet)
	if err != nil {
		return fmt.Errorf("failed to locate sheet %q: %w", AllLotSheet, err)
	}
	f.SetActiveSheet(idx)

	stamp := opts.now().UTC().Format(time.RFC3339)
	props := &excelize.DocProperties{
		Title:      "Lots",
		Identifier: opts.SessionID,
		Creator:    opts.Creator,
		Created:    stamp,
		Modified:   stamp,
	}
	if err := f.SetDocProps(props); err != nil {
		return fmt.Errorf("failed to set document properties: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func nonEmpty(lots []lot.Lot) []lot.Lot {
	out := make([]lot.Lot, 0, len(lots))
	for _, l := range lots {
		if l.Count() > 0 {
			out = append(out, l)
		}
	}
	return out
}
