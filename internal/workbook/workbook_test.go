package workbook

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mmr-tortoise/lotscan/internal/lot"
)

func serials(start, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%011d", 49769791+start+i)
	}
	return out
}

func open(t *testing.T, art *Artifact) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "LOTS_2024-03-07.xlsx", FileName(ts))
}

func TestExport_NothingToExport(t *testing.T) {
	tests := []struct {
		name string
		lots []lot.Lot
	}{
		{"nil", nil},
		{"only empty lots", []lot.Lot{{Number: 1}, {Number: 2, Tokens: []string{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := Export(tt.lots, Options{})
			assert.ErrorIs(t, err, ErrNothingToExport)
			assert.Nil(t, art)
		})
	}
}

// TestExport_FullLot covers the common case: one full lot of 30 serials.
func TestExport_FullLot(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tokens := serials(0, 30)

	art, err := Export([]lot.Lot{{Number: 1, Tokens: tokens}}, Options{
		SessionID: "6f1c1c5e-1a2b-4c3d-8e9f-0a1b2c3d4e5f",
		Creator:   "station-4",
		Now:       now,
	})
	require.NoError(t, err)
	assert.Equal(t, "LOTS_2024-05-01.xlsx", art.FileName)
	assert.Equal(t, 1, art.Lots)
	assert.Equal(t, 30, art.Tokens)

	f := open(t, art)
	assert.Equal(t, []string{AllLotSheet, "LOT 1"}, f.GetSheetList())

	rows, err := f.GetRows(AllLotSheet)
	require.NoError(t, err)
	require.Len(t, rows, 31, "header row plus 30 tokens; the trailing blank row is not returned")
	assert.Equal(t, []string{"LOT1", "Count: 30"}, rows[0])
	assert.Equal(t, []string{"00049769791"}, rows[1], "leading zeros must survive")
	assert.Equal(t, []string{tokens[29]}, rows[30])

	lotRows, err := f.GetRows("LOT 1")
	require.NoError(t, err)
	require.Len(t, lotRows, 30)
	assert.Equal(t, tokens[0], lotRows[0][0])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "6f1c1c5e-1a2b-4c3d-8e9f-0a1b2c3d4e5f", props.Identifier)
	assert.Equal(t, "station-4", props.Creator)
}

// TestExport_MultipleLots verifies separator rows and that single-token
// lots get no sheet of their own.
func TestExport_MultipleLots(t *testing.T) {
	lots := []lot.Lot{
		{Number: 1, Tokens: serials(0, 2)},
		{Number: 2, Tokens: serials(2, 1)},
		{Number: 3},
		{Number: 4, Tokens: serials(3, 3)},
	}

	art, err := Export(lots, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, art.Lots)
	assert.Equal(t, 6, art.Tokens)

	f := open(t, art)
	assert.Equal(t, []string{AllLotSheet, "LOT 1", "LOT 4"}, f.GetSheetList())

	rows, err := f.GetRows(AllLotSheet)
	require.NoError(t, err)
	require.Len(t, rows, 11)

	assert.Equal(t, []string{"LOT1", "Count: 2"}, rows[0])
	assert.Empty(t, rows[3], "blank row after LOT 1")
	assert.Equal(t, []string{"LOT2", "Count: 1"}, rows[4])
	assert.Equal(t, []string{"00049769793"}, rows[5])
	assert.Empty(t, rows[6], "blank row after LOT 2")
	assert.Equal(t, []string{"LOT4", "Count: 3"}, rows[7])
	assert.Equal(t, []string{"00049769796"}, rows[10])
}

func TestBuild_DoesNotModifyInput(t *testing.T) {
	lots := []lot.Lot{{Number: 1, Tokens: serials(0, 2)}, {Number: 2}}

	f, err := Build(lots, Options{})
	require.NoError(t, err)
	defer f.Close()

	assert.Len(t, lots, 2)
	assert.Equal(t, serials(0, 2), lots[0].Tokens)
}
