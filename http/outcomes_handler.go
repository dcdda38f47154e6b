package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/report"
)

type OutcomeReader interface {
	RecentOutcomes(ctx context.Context, limit int) ([]events.LeadOutcome, error)
}

type OutcomesDeps struct {
	// Store is preferred when set; Recorder serves this process's history
	// otherwise.
	Store    OutcomeReader
	Recorder *report.Recorder
}

func RegisterOutcomes(r chi.Router, d OutcomesDeps) {
	r.Get("/outcomes", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_limit", "detail": "limit must be a positive integer"})
				return
			}
			limit = min(n, 500)
		}

		resp := map[string]any{"ok": true}
		if d.Recorder != nil {
			resp["counts"] = d.Recorder.Counts()
		}
		switch {
		case d.Store != nil:
			out, err := d.Store.RecentOutcomes(req.Context(), limit)
			if err != nil {
				render.Status(req, http.StatusInternalServerError)
				render.JSON(w, req, map[string]any{"error": "store_error", "detail": err.Error()})
				return
			}
			resp["source"], resp["outcomes"] = "postgres", out
		case d.Recorder != nil:
			resp["source"], resp["outcomes"] = "memory", d.Recorder.Recent(limit)
		default:
			resp["source"], resp["outcomes"] = "none", []events.LeadOutcome{}
		}
		render.JSON(w, req, resp)
	})
}
