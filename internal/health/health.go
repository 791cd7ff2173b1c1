// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xojiakbarxolboyev/telegrambot/core/buildinfo"
	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// Pinger reports whether a dependency is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 3 * time.Second

type response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewRouter returns the probe routes. /healthz always answers 200;
// /readyz answers 503 while ready fails.
func NewRouter(ready Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response{Status: "ok", Version: buildinfo.Version})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready == nil {
			writeJSON(w, http.StatusOK, response{Status: "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			logger.Warn(ctx, logger.CompHTTP, "http.readyz",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			writeJSON(w, http.StatusServiceUnavailable, response{Status: "unavailable", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, response{Status: "ok"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs the probe server on addr until ctx is done.
func Serve(ctx context.Context, addr string, ready Pinger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, logger.CompHTTP, "http.listen", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info(shutdownCtx, logger.CompHTTP, "http.shutdown", slog.String("status", "ok"))
		return nil
	}
}
