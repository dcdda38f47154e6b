package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/rentradar/internal/app"
	"github.com/yourorg/rentradar/internal/config"
	"github.com/yourorg/rentradar/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration:\n%v", err)
	}
	lg := logger.New(logger.ParseLevel(cfg.LogLevel))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(rootCtx, cfg, lg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.Close()

	if cfg.RunOnce {
		if !a.Budget.InWindow(a.Budget.Now()) {
			lg.Warn("outside active window %s, running anyway", a.Budget.Window())
		}
		stats, err := a.Orchestrator.RunOnce(rootCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("rentradar run failed: %v", err)
		}
		a.Recorder.Flush(context.Background())
		sent := 0
		for _, s := range stats {
			sent += s.Sent
		}
		lg.Info("run complete: %d area(s), %d sent, %d left today", len(stats), sent, a.Budget.Remaining())
		return
	}

	go a.Recorder.Run(rootCtx)
	if err := a.Orchestrator.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("rentradar stopped with error: %v", err)
	}
}
