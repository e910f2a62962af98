package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
)

func exitCode(t *testing.T, err error) model.ExitCode {
	t.Helper()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "want a CLIError, got %v", err)
	return cliErr.Code
}

func TestCartonSerials(t *testing.T) {
	t.Run("serial lines", func(t *testing.T) {
		got, err := cartonSerials(serialLines(0, 3)+"\n", 30, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{serial(0), serial(1), serial(2)}, got)
	})

	t.Run("exactly one carton", func(t *testing.T) {
		got, err := cartonSerials(serialLines(0, 30), 30, 0)
		require.NoError(t, err)
		assert.Len(t, got, 30)
	})

	t.Run("more than one carton", func(t *testing.T) {
		_, err := cartonSerials(serialLines(0, 31), 30, 0)
		assert.Equal(t, model.ExitValidationError, exitCode(t, err))
	})

	t.Run("rejected line", func(t *testing.T) {
		_, err := cartonSerials(serial(0)+"\n"+serial(0)+"\n", 30, 0)
		assert.Equal(t, model.ExitValidationError, exitCode(t, err))
		assert.Contains(t, err.Error(), "line 2: Duplicate Serial.")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := cartonSerials("\n\n", 30, 0)
		assert.Equal(t, model.ExitValidationError, exitCode(t, err))
		assert.Contains(t, err.Error(), "No Serials scanned.")
	})
}

func TestCartonSerials_Listing(t *testing.T) {
	listing := lot.FormatListing([]lot.Lot{
		{Number: 1, Tokens: []string{serial(0), serial(1)}},
		{Number: 2, Tokens: []string{serial(2)}},
	})

	tests := []struct {
		name    string
		text    string
		pick    int
		want    []string
		wantErr string
	}{
		{name: "pick lot 2", text: listing, pick: 2, want: []string{serial(2)}},
		{name: "pick lot 1", text: listing, pick: 1, want: []string{serial(0), serial(1)}},
		{name: "several lots need --lot", text: listing, wantErr: "listing holds 2 lots, choose one with --lot"},
		{name: "missing lot", text: listing, pick: 9, wantErr: "LOT 9 is not in the listing"},
		{
			name: "single lot listing",
			text: lot.FormatListing([]lot.Lot{{Number: 7, Tokens: []string{serial(5)}}}),
			want: []string{serial(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cartonSerials(tt.text, 30, tt.pick)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.Equal(t, model.ExitValidationError, exitCode(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
