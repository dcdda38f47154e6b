package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/ledger"
)

type StatusDeps struct {
	Ledger ledger.Ledger
	Budget *budget.Budget
}

func RegisterStatus(r chi.Router, d StatusDeps) {
	r.Get("/v1/ledger/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		seen, err := d.Ledger.Seen(req.Context(), id)
		if err != nil {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "ledger_unavailable", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"id": id, "seen": seen})
	})

	r.Get("/v1/budget", func(w http.ResponseWriter, req *http.Request) {
		now := d.Budget.Now()
		d.Budget.Rollover(now)
		snap := d.Budget.Snapshot()
		render.JSON(w, req, map[string]any{
			"day":         snap.Day,
			"sent":        snap.Sent,
			"limit":       snap.Limit,
			"remaining":   d.Budget.Remaining(),
			"window":      d.Budget.Window().String(),
			"in_window":   d.Budget.InWindow(now),
			"spacing_sec": int(d.Budget.Spacing().Seconds()),
		})
	})
}
