package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/webtext/audit"
	"github.com/hazyhaar/webtext/kit"
)

// NewRouter builds the HTTP surface: extraction, health probes and the
// audit event query.
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": svc.Version(),
			"features": []string{
				"simple_extraction",
				"browser_extraction",
				"file_conversion",
				"proxy_rotation",
				"quality_metrics",
				"link_extraction",
			},
		})
	})
	r.Get("/_ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"ping": "pong"})
	})

	r.Post("/extract", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)

		resp, err := svc.Extract(ctx, &req)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				writeError(w, http.StatusGatewayTimeout, err)
			case errors.Is(err, ErrBadRequest):
				writeError(w, http.StatusUnprocessableEntity, err)
			default:
				writeError(w, http.StatusBadGateway, err)
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		if svc.cfg.Audit == nil {
			writeError(w, http.StatusNotFound, errors.New("audit log disabled"))
			return
		}
		f := &audit.Filter{
			Status: r.URL.Query().Get("status"),
			Tier:   r.URL.Query().Get("tier"),
			Limit:  queryInt(r, "limit", 100),
			Offset: queryInt(r, "offset", 0),
		}
		if s := r.URL.Query().Get("since"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			f.Since = &t
		}
		events, err := svc.cfg.Audit.Query(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
