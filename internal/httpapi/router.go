// Package httpapi serves the dashboard views as JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/beandash/beandash/internal/controller"
)

// RequestTimeout bounds a single API request, including bean-query runs.
const RequestTimeout = 60 * time.Second

// Views are the controllers behind the API. Journal may be nil when no
// journal backend is configured.
type Views struct {
	BalanceSheet *controller.BalanceSheet
	Accounts     *controller.Accounts
	Overview     *controller.Overview
	Transactions *controller.Transactions
	Commodities  *controller.Commodities
	Journal      *controller.Journal
}

type handler struct {
	views Views
	log   *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(v Views, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{views: v, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/accounts", h.accounts)
		r.Get("/overview", h.overview)
		r.Get("/transactions", h.transactions)
		r.Get("/commodities", h.commodities)
		r.Get("/journal", h.journal)
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// badRequest marks a client input error.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }

// fail writes a 400 for bad input and a 502 for upstream failures.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	if errors.As(err, &br) {
		writeJSONError(w, http.StatusBadRequest, br.Error())
		return
	}
	h.log.Warn("view load failed", "path", r.URL.Path, "error", err)
	writeJSONError(w, http.StatusBadGateway, err.Error())
}
