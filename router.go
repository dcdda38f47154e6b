package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/rentradar/http"
	httpv1 "github.com/yourorg/rentradar/http/v1"
	"github.com/yourorg/rentradar/internal/app"
)

func BuildRouter(a *app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })

	httpv1.RegisterEvaluate(r, httpv1.EvaluateDeps{Evaluator: a.Evaluator, Filter: a.Filter, Redis: a.Redis})
	httpv1.RegisterStatus(r, httpv1.StatusDeps{Ledger: a.Ledger, Budget: a.Budget})

	od := httpapi.OutcomesDeps{Recorder: a.Recorder}
	if a.Store != nil {
		od.Store = a.Store
	}
	httpapi.RegisterOutcomes(r, od)

	return r
}
