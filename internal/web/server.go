package web

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hpungsan/formulary/internal/config"
	"github.com/hpungsan/formulary/internal/logging"
	"github.com/hpungsan/formulary/internal/ops"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes int64 = 10 << 20

// ShutdownTimeout bounds graceful shutdown of in-flight requests.
const ShutdownTimeout = 5 * time.Second

// NewServer creates the HTTP server for the Formulary JSON API.
// gen may be nil when no model credential is configured.
func NewServer(db *sql.DB, cfg *config.Config, gen ops.Generator, rec ops.ExchangeRecorder, log *logging.Logger) *http.Server {
	if log == nil {
		log = logging.Nop()
	}

	h := &Handlers{
		db:  db,
		cfg: cfg,
		gen: gen,
		rec: rec,
		log: log,
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newHandler(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newHandler registers the routes and wraps them in middleware.
func newHandler(h *Handlers, log *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", h.HandleConfig)
	mux.HandleFunc("POST /api/call-gemini", h.HandleCallGemini)
	mux.HandleFunc("POST /api/save-content", h.HandleSaveContent)
	mux.HandleFunc("GET /api/get-saved-content", h.HandleListContent)
	mux.HandleFunc("GET /api/get-saved-content/{id}", h.HandleGetContent)
	mux.HandleFunc("POST /api/save-formula", h.HandleSaveFormula)
	mux.HandleFunc("GET /api/get-formulas", h.HandleListFormulas)
	mux.HandleFunc("POST /api/save-problem", h.HandleSaveProblem)
	mux.HandleFunc("GET /api/get-problems", h.HandleListProblems)
	mux.HandleFunc("/", h.HandleNotFound)

	var handler http.Handler = mux
	handler = limitBody(handler, MaxBodyBytes)
	handler = securityHeaders(handler)
	handler = cors(handler)
	handler = accessLog(handler, log)
	handler = requestID(handler)
	return handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("formulary API listening", "addr", srv.Addr)

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
