package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/docveille/snapshot"
)

// Server exposes the monitor over HTTP: health, run history and a manual
// trigger endpoint.
type Server struct {
	svc    *Service
	store  *snapshot.Store
	logger *slog.Logger

	// authHash is a bcrypt hash; empty disables auth on the trigger.
	authHash string
}

// NewServer builds the HTTP facade.
func NewServer(svc *Service, store *snapshot.Store, authHash string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, store: store, logger: logger, authHash: authHash}
}

// Router assembles the chi routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"running": s.svc.Running(),
		})
	})

	r.Get("/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		run, err := s.store.LatestRun(r.Context())
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("no runs recorded yet"))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":             run.ID,
			"started_at":     run.StartedAt.Format(time.RFC3339),
			"finished_at":    run.FinishedAt.Format(time.RFC3339),
			"status":         run.Status,
			"pages_checked":  run.PagesChecked,
			"pages_new":      run.PagesNew,
			"pages_modified": run.PagesModified,
			"pages_removed":  run.PagesRemoved,
			"max_severity":   run.MaxSeverity.String(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
			if s.svc.Running() {
				writeError(w, http.StatusConflict, ErrRunInProgress)
				return
			}
			// The cycle outlives the request; detach it from the request
			// context and report asynchronously.
			go func() {
				ctx := context.Background()
				if _, err := s.svc.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
					s.logger.Error("server: triggered run failed", "error", err)
				}
			}()
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		})
	})

	return r
}

// requireToken enforces a bearer token against the configured bcrypt hash.
// No hash configured means open access, for single-user deployments behind
// a private network.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || bcrypt.CompareHashAndPassword([]byte(s.authHash), []byte(token)) != nil {
			writeError(w, http.StatusUnauthorized, errors.New("invalid or missing token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
