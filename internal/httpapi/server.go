// Package httpapi exposes a scan station over local HTTP, so fixed
// scanners, label printers or a browser page can feed and export lots.
//
// All handlers go through a lot.Station, which serializes access to the
// session; handlers never touch lot state directly.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/workbook"
)

const (
	maxBodyBytes = 64 << 10
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Server routes HTTP requests to a station.
type Server struct {
	station *lot.Station
	log     *slog.Logger
	creator string
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithCreator sets the workbook creator property.
func WithCreator(name string) Option {
	return func(s *Server) { s.creator = name }
}

// WithClock replaces time.Now for export stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a server for station. A nil logger discards logs.
func New(station *lot.Station, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{station: station, log: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/lot", s.handleView).Methods(http.MethodGet)
	r.HandleFunc("/lot/tokens", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/lot/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/lot/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/lot/listing", s.handleListing).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// View is the JSON form of the station state.
type View struct {
	SessionID string    `json:"sessionId"`
	Lot       int       `json:"lot"`
	Count     int       `json:"count"`
	Max       int       `json:"max"`
	Full      bool      `json:"full"`
	Lots      []lot.Lot `json:"lots"`
}

func viewOf(sess lot.Session) View {
	return View{
		SessionID: sess.ID(),
		Lot:       sess.Active().Number,
		Count:     sess.Count(),
		Max:       sess.Config().MaxSize,
		Full:      !sess.InputEnabled(),
		Lots:      sess.Lots(),
	}
}

type submitRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, err := s.station.Snapshot(r.Context())
	if err != nil {
		s.stationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	sess, _, err := s.station.Submit(r.Context(), req.Token)
	if err != nil {
		var verr *lot.ValidationError
		if errors.As(err, &verr) {
			s.log.Info("token rejected", "reason", verr.Reason, "token", verr.Token)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Message, Reason: string(verr.Reason)})
			return
		}
		s.stationError(w, err)
		return
	}
	s.log.Debug("token accepted", "lot", sess.Active().Number, "count", sess.CountLabel())
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, effects, err := s.station.Reset(r.Context())
	if err != nil {
		s.stationError(w, err)
		return
	}
	for _, e := range effects {
		if e.Kind == lot.EffectLotSealed {
			s.log.Info("lot closed", "lot", e.Lot)
		}
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.station.Snapshot(r.Context())
	if err != nil {
		s.stationError(w, err)
		return
	}

	art, err := workbook.Export(sess.Lots(), workbook.Options{
		SessionID: sess.ID(),
		Creator:   s.creator,
		Now:       s.now(),
	})
	if errors.Is(err, workbook.ErrNothingToExport) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "No data to export."})
		return
	}
	if err != nil {
		s.log.Error("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	s.log.Info("workbook exported", "file", art.FileName, "lots", art.Lots, "tokens", art.Tokens)
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	sess, err := s.station.Snapshot(r.Context())
	if err != nil {
		s.stationError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, lot.FormatListing(sess.Lots()))
}

func (s *Server) stationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lot.ErrStationBusy):
		status = http.StatusServiceUnavailable
	case errors.Is(err, lot.ErrStationClosed):
		status = http.StatusGone
	}
	s.log.Warn("station unavailable", "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
