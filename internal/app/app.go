/*
Package app wires configured backends into a runnable pipeline. Both the API
server and the standalone daemon build through it.
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/config"
	"github.com/yourorg/rentradar/internal/delivery"
	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/filter"
	"github.com/yourorg/rentradar/internal/ledger"
	"github.com/yourorg/rentradar/internal/logger"
	"github.com/yourorg/rentradar/internal/pipeline"
	"github.com/yourorg/rentradar/internal/redisx"
	"github.com/yourorg/rentradar/internal/report"
	"github.com/yourorg/rentradar/internal/source"
	"github.com/yourorg/rentradar/internal/store"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger

	Store *store.Store
	Redis *redisx.Client

	Ledger       ledger.Ledger
	Budget       *budget.Budget
	Filter       *filter.Filter
	Evaluator    *pipeline.Evaluator
	Sink         delivery.Sink
	Source       source.Source
	Publisher    events.Publisher
	Recorder     *report.Recorder
	Orchestrator *pipeline.Orchestrator
}

// Build connects the configured backends and restores today's budget. The
// caller owns Close.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	if cfg.PGDSN != "" {
		st, err := store.Open(cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("store open: %w", err)
		}
		a.Store = st
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = st.Ping(pctx)
		if err == nil {
			err = st.Migrate(pctx)
		}
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
	}
	if cfg.RedisAddr != "" {
		a.Redis = redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.Redis.Ping(pctx)
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var err error
	if a.Ledger, err = a.buildLedger(); err != nil {
		a.Close()
		return nil, err
	}

	a.Budget = budget.New(budget.Config{
		Limit:    cfg.DailyLimit,
		Window:   cfg.Window,
		Location: cfg.Location,
		Store:    a.budgetStore(),
	})
	if err := a.Budget.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("budget restore: %w", err)
	}

	table, err := cfg.RateTable()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Filter = filter.New(cfg.Keywords)
	a.Evaluator = &pipeline.Evaluator{Rates: table, Target: cfg.TargetProfit, BaseURL: cfg.BaseURL}
	a.Sink = a.buildSink()
	a.Source = a.buildSource()

	a.Publisher = events.NewInMemory(1024)
	a.Recorder = &report.Recorder{Pub: a.Publisher, Logger: log}
	if a.Store != nil {
		a.Recorder.Store = a.Store
	}

	a.Orchestrator = &pipeline.Orchestrator{
		Source:    a.Source,
		Filter:    a.Filter,
		Ledger:    a.Ledger,
		Budget:    a.Budget,
		Sink:      a.Sink,
		Evaluator: a.Evaluator,
		Publisher: a.Publisher,
		Logger:    log,
		Config: pipeline.Config{
			Areas:          cfg.Areas,
			Interval:       cfg.Interval,
			Jitter:         cfg.Jitter,
			RecoveryDelay:  cfg.RecoveryDelay,
			RequestTimeout: cfg.RequestTimeout,
		},
	}
	return a, nil
}

func (a *App) buildLedger() (ledger.Ledger, error) {
	switch a.Config.Ledger {
	case config.LedgerFile:
		f, err := ledger.OpenFile(a.Config.LedgerFile)
		if err != nil {
			return nil, err
		}
		a.Logger.Info("ledger: %d seen id(s) restored from %s", f.Len(), f.Path())
		return f, nil
	case config.LedgerRedis:
		if a.Redis == nil {
			return nil, errors.New("redis ledger requires REDIS_ADDR")
		}
		return ledger.NewRedis(a.Redis, ledger.DefaultRedisKey), nil
	case config.LedgerPostgres:
		if a.Store == nil {
			return nil, errors.New("postgres ledger requires PG_DSN")
		}
		return ledger.NewPostgres(a.Store), nil
	default:
		return ledger.NewMemory(), nil
	}
}

func (a *App) budgetStore() budget.StateStore {
	switch {
	case a.Store != nil:
		return a.Store
	case a.Redis != nil:
		return a.Redis
	default:
		return nil
	}
}

func (a *App) buildSink() delivery.Sink {
	cfg := a.Config
	if cfg.DeliveryMode == config.ModeEmail {
		return delivery.NewEmailSink(delivery.EmailConfig{
			SMTPServer: cfg.SMTPServer,
			SMTPPort:   cfg.SMTPPort,
			SMTPUser:   cfg.SMTPUser,
			SMTPPass:   cfg.SMTPPass,
			FromEmail:  cfg.MailFrom,
			ToEmail:    cfg.MailTo,
			Attempts:   cfg.DeliveryAttempts,
			Logger:     a.Logger,
		})
	}
	return delivery.NewWebhook(delivery.WebhookConfig{
		URL:      cfg.WebhookURL,
		Mode:     delivery.Mode(cfg.DeliveryMode),
		Attempts: cfg.DeliveryAttempts,
		Logger:   a.Logger,
	})
}

func (a *App) buildSource() source.Source {
	cc := source.ClientConfig{
		UserAgent: a.Config.UserAgent,
		Retries:   2,
		Timeout:   a.Config.RequestTimeout,
		Logger:    a.Logger,
	}
	if a.Config.Source == config.SourceHTML {
		return source.NewHTMLSource(cc)
	}
	return source.NewFeedClient(cc)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
