package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/rentradar/internal/canon"
	"github.com/yourorg/rentradar/internal/filter"
	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/pipeline"
	"github.com/yourorg/rentradar/internal/redisx"
)

type EvaluateDeps struct {
	Evaluator *pipeline.Evaluator
	Filter    *filter.Filter
	// Redis, when set, caches evaluations for CacheTTL.
	Redis    *redisx.Client
	CacheTTL time.Duration
}

type cachedEvaluation struct {
	Data listing.EvaluatedListing `json:"data"`
	Meta struct {
		CachedAt   time.Time `json:"cached_at"`
		TTLSeconds int       `json:"ttl_seconds"`
	} `json:"meta"`
}

func RegisterEvaluate(r chi.Router, d EvaluateDeps) {
	r.Post("/v1/evaluate", func(w http.ResponseWriter, req *http.Request) {
		var body listing.RawListing
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		evaluate(w, req, d, body)
	})
}

func evaluate(w http.ResponseWriter, req *http.Request, d EvaluateDeps, body listing.RawListing) {
	body.Area = strings.ToUpper(strings.TrimSpace(body.Area))
	body.Address = canon.Address(body.Address)
	if body.Area == "" {
		body.Area = canon.Outcode(body.Address)
	}
	if err := body.Validate(); err != nil {
		render.Status(req, http.StatusUnprocessableEntity)
		render.JSON(w, req, map[string]any{"error": "malformed", "detail": err.Error()})
		return
	}
	if d.Filter != nil {
		if kw, bad := d.Filter.Match(body); bad {
			render.Status(req, http.StatusUnprocessableEntity)
			render.JSON(w, req, map[string]any{"error": "disallowed", "keyword": kw})
			return
		}
	}

	ctx := req.Context()
	key := cacheKey(body)
	if d.Redis != nil {
		if val, err := d.Redis.Get(ctx, key); err == nil && val != "" {
			var env cachedEvaluation
			if err := json.Unmarshal([]byte(val), &env); err == nil {
				// scores only depend on the key; the listing itself is the caller's
				env.Data.RawListing = body
				render.JSON(w, req, map[string]any{"ok": true, "source": "cache", "data": env.Data})
				return
			}
		}
	}

	lead := d.Evaluator.Evaluate(body)

	if d.Redis != nil {
		ttl := d.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		env := cachedEvaluation{Data: lead}
		env.Meta.CachedAt = lead.EvaluatedAt
		env.Meta.TTLSeconds = int(ttl.Seconds())
		if b, err := json.Marshal(env); err == nil {
			_ = d.Redis.Set(ctx, key, string(b), ttl)
		}
	}
	render.JSON(w, req, map[string]any{"ok": true, "source": "fresh", "data": lead})
}

// cacheKey covers every input the scores and delivery URL depend on.
func cacheKey(l listing.RawListing) string {
	return fmt.Sprintf("rentradar:eval:%s:%s:%d:%d:%s", l.Area, l.ID, l.Bedrooms, l.RentPCM, l.URLPath)
}
