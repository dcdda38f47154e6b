package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yourorg/rentradar/internal/config"
	"github.com/yourorg/rentradar/internal/delivery"
	"github.com/yourorg/rentradar/internal/ledger"
	"github.com/yourorg/rentradar/internal/logger"
	"github.com/yourorg/rentradar/internal/source"
)

func baseConfig() *config.Config {
	return &config.Config{
		Areas:            []source.Area{{Code: "FY1", Location: "https://example.test/fy1"}},
		Source:           config.SourceFeed,
		TargetProfit:     1200,
		FeeRate:          0.15,
		DailyLimit:       5,
		Location:         time.UTC,
		DeliveryMode:     "json",
		DeliveryAttempts: 3,
		WebhookURL:       "https://hooks.example.test",
		Ledger:           config.LedgerMemory,
	}
}

func quiet() *logger.Logger { return logger.NewWithWriters(io.Discard, io.Discard, logger.LevelError) }

func TestBuildRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.Ledger = config.LedgerRedis
	cfg.RedisAddr = mr.Addr()
	cfg.Source = config.SourceHTML

	// a quota spent earlier today survives the restart
	today := time.Now().In(time.UTC).Format("2006-01-02")
	mr.Set("rentradar:budget", `{"day":"`+today+`","sent":3,"limit":5}`)

	a, err := Build(context.Background(), cfg, quiet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if _, ok := a.Ledger.(*ledger.Redis); !ok {
		t.Errorf("ledger = %T", a.Ledger)
	}
	if _, ok := a.Source.(*source.HTMLSource); !ok {
		t.Errorf("source = %T", a.Source)
	}
	if got := a.Budget.Snapshot(); got.Sent != 3 {
		t.Errorf("restored budget = %+v", got)
	}
	if err := a.Budget.Spend(context.Background(), time.Now()); err != nil {
		t.Fatalf("Spend: %v", err)
	}
	st, ok, err := a.Redis.LoadBudget(context.Background())
	if err != nil || !ok {
		t.Fatalf("budget not persisted: %v", err)
	}
	if st.Sent != 4 || st.Day != today {
		t.Errorf("persisted = %+v", st)
	}
}

func TestBuildFileLedgerAndEmail(t *testing.T) {
	cfg := baseConfig()
	cfg.Ledger = config.LedgerFile
	cfg.LedgerFile = filepath.Join(t.TempDir(), "seen.json")
	cfg.DeliveryMode = config.ModeEmail
	cfg.SMTPServer = "smtp.example.test"
	cfg.MailTo = "leads@example.test"

	a, err := Build(context.Background(), cfg, quiet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if _, ok := a.Ledger.(*ledger.File); !ok {
		t.Errorf("ledger = %T", a.Ledger)
	}
	if _, ok := a.Sink.(*delivery.EmailSink); !ok {
		t.Errorf("sink = %T", a.Sink)
	}
	if a.Orchestrator == nil || a.Recorder == nil || a.Recorder.Store != nil {
		t.Errorf("orchestrator/recorder not wired: %+v", a.Recorder)
	}
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := baseConfig()
	cfg.RedisAddr = addr
	if _, err := Build(context.Background(), cfg, quiet()); err == nil {
		t.Fatal("expected ping error")
	}
}
