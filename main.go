package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/rentradar/internal/app"
	"github.com/yourorg/rentradar/internal/config"
	"github.com/yourorg/rentradar/internal/env"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.Close()

	go a.Recorder.Run(ctx)
	if !env.GetBool("RENTRADAR_API_ONLY", false) {
		go func() {
			if err := a.Orchestrator.Run(ctx); err != nil {
				lg.Error("pipeline stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logger.Middleware(lg)(BuildRouter(a)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	lg.Info("rentradar api listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
