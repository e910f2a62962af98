// Package cli: serve.go implements the "lotscan serve" command, a local
// HTTP endpoint for fixed scanners and browser pages.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/httpapi"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/port"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	lotFlags

	host string
	port int
}

// NewServeCommand creates the "serve" cobra command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan station over local HTTP",
		Long: `Run a scan session behind a small HTTP API:

  GET  /health        liveness
  GET  /lot           session view as JSON
  POST /lot/tokens    submit {"token": "..."}
  POST /lot/reset     close the active lot
  GET  /lot/export    download the Excel workbook
  GET  /lot/listing   lot listing as text

The configured port is used when free, otherwise the next free port
above it.

Examples:
  lotscan serve
  lotscan serve --port 9000 --host 0.0.0.0`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.host, "host", "127.0.0.1", "Address to listen on")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Preferred port (default: listenPort from config)")

	return cmd
}

func runServe(ctx context.Context, flags *serveFlags) error {
	cfg, sess, err := newSession(&flags.lotFlags)
	if err != nil {
		return err
	}

	preferred := cfg.ListenPort
	if flags.port != 0 {
		preferred = flags.port
	}
	scanner := port.NewScanner(flags.host)
	p, err := scanner.Resolve(preferred, port.DefaultSpan)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot find a free port", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	station := lot.NewStation(sess)
	defer station.Close()

	api := httpapi.New(station, logger, httpapi.WithCreator(cfg.StationName()))
	addr := net.JoinHostPort(flags.host, strconv.Itoa(p))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if p != preferred {
		logger.Warn("preferred port in use", "preferred", preferred, "port", p, "skipped", scanner.UsedPorts(preferred, p-1))
	}
	logger.Info("scan station listening", "url", "http://"+addr, "session", sess.ID(), "lotSize", cfg.LotSize)
	if IsJSONOutput() {
		if err := printJSON(map[string]any{"url": "http://" + addr, "sessionId": sess.ID()}); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("server on %s failed", addr), err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		return model.WrapCLIError(model.ExitGeneralError, "server shutdown failed", err)
	}
	return nil
}
