// Package webhook receives host notifications over HTTP. Filter
// notifications need a synchronous reply carrying the payload to persist,
// which a queue cannot provide.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/hooks"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/types"
)

const maxBodyBytes = 10 << 20

// Prober reports whether the search engine is reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

type Server struct {
	dispatcher *hooks.Dispatcher
	prober     Prober
	log        zerolog.Logger
}

func NewServer(dispatcher *hooks.Dispatcher, prober Prober, logger zerolog.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		prober:     prober,
		log:        logging.Component(logger, "webhook"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /hooks/action", s.handleAction)
	mux.HandleFunc("POST /hooks/filter", s.handleFilter)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	n, ok := s.decode(w, r)
	if !ok {
		return
	}
	outcomes, err := s.dispatcher.Action(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"outcomes": outcomes})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	n, ok := s.decode(w, r)
	if !ok {
		return
	}
	payload, err := s.dispatcher.Filter(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.prober.Probe(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"search": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"search": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (types.Notification, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err)
		return types.Notification{}, false
	}
	n, err := types.DecodeNotification(bytes.TrimSpace(body))
	if err != nil {
		s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected notification")
		writeError(w, http.StatusBadRequest, err)
		return types.Notification{}, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
