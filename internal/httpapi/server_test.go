package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mmr-tortoise/lotscan/internal/lot"
)

func serial(i int) string {
	return fmt.Sprintf("%011d", 49769791+i)
}

func newTestServer(t *testing.T, maxSize int) *httptest.Server {
	t.Helper()
	cfg := lot.DefaultConfig()
	cfg.MaxSize = maxSize
	sess, err := lot.NewSession(cfg)
	require.NoError(t, err)

	st := lot.NewStation(sess)
	t.Cleanup(st.Close)

	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(New(st, nil,
		WithCreator("station-4"),
		WithClock(func() time.Time { return fixed }),
	).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postToken(t *testing.T, srv *httptest.Server, token string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"token": token})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/lot/tokens", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeView(t *testing.T, resp *http.Response) View {
	t.Helper()
	var v View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 30)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestSubmitAndView(t *testing.T) {
	srv := newTestServer(t, 30)

	resp := postToken(t, srv, serial(0))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	assert.Equal(t, 1, v.Lot)
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, 30, v.Max)
	assert.False(t, v.Full)
	assert.NotEmpty(t, v.SessionID)

	get, err := http.Get(srv.URL + "/lot")
	require.NoError(t, err)
	defer get.Body.Close()
	view := decodeView(t, get)
	require.Len(t, view.Lots, 1)
	assert.Equal(t, []string{serial(0)}, view.Lots[0].Tokens)
}

func TestSubmit_Rejections(t *testing.T) {
	srv := newTestServer(t, 2)
	require.Equal(t, http.StatusOK, postToken(t, srv, serial(0)).StatusCode)

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{"duplicate", serial(0), "duplicate"},
		{"wrong length", "123", "wrong_length"},
		{"non numeric", "abc", "non_numeric"},
		{"empty", "", "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postToken(t, srv, tt.token)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

			var e errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, tt.reason, e.Reason)
			assert.NotEmpty(t, e.Error)
		})
	}

	t.Run("lot full", func(t *testing.T) {
		require.Equal(t, http.StatusOK, postToken(t, srv, serial(1)).StatusCode)

		resp := postToken(t, srv, serial(2))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var e errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
		assert.Equal(t, "lot_full", e.Reason)
		assert.Equal(t, "Lot size limit reached. You can only scan 2 Serials.", e.Error)
	})
}

func TestSubmit_BadBody(t *testing.T) {
	srv := newTestServer(t, 30)
	resp, err := http.Post(srv.URL+"/lot/tokens", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReset(t *testing.T) {
	srv := newTestServer(t, 2)
	postToken(t, srv, serial(0))
	postToken(t, srv, serial(1))

	resp, err := http.Post(srv.URL+"/lot/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	v := decodeView(t, resp)
	assert.Equal(t, 2, v.Lot)
	assert.Equal(t, 0, v.Count)
	assert.False(t, v.Full)
	assert.Len(t, v.Lots, 1, "the sealed lot is still listed")
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, 30)

	t.Run("nothing to export", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/lot/export")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("workbook attachment", func(t *testing.T) {
		postToken(t, srv, serial(0))
		postToken(t, srv, serial(1))

		resp, err := http.Get(srv.URL + "/lot/export")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, xlsxType, resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="LOTS_2024-05-01.xlsx"`, resp.Header.Get("Content-Disposition"))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("ALL LOT")
		require.NoError(t, err)
		assert.Equal(t, []string{"LOT1", "Count: 2"}, rows[0])
	})
}

func TestListing(t *testing.T) {
	srv := newTestServer(t, 30)
	postToken(t, srv, serial(0))

	resp, err := http.Get(srv.URL + "/lot/listing")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "=================== LOT [1] | COUNT: [01]\n00049769791\n", string(body))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, 30)
	resp, err := http.Get(srv.URL + "/lot/reset")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// TestConcurrentSubmit verifies that parallel scanners posting at once
// never push the lot past its maximum.
func TestConcurrentSubmit(t *testing.T) {
	srv := newTestServer(t, 30)

	var wg sync.WaitGroup
	for i := 0; i < 45; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]string{"token": token})
			resp, err := http.Post(srv.URL+"/lot/tokens", "application/json", bytes.NewReader(body))
			if err == nil {
				resp.Body.Close()
			}
		}(serial(i))
	}
	wg.Wait()

	resp, err := http.Get(srv.URL + "/lot")
	require.NoError(t, err)
	defer resp.Body.Close()
	v := decodeView(t, resp)
	assert.Equal(t, 30, v.Count)
	assert.True(t, v.Full)
}
