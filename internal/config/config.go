/*
Package config builds the rentradar runtime configuration from the process
environment and an optional .env file.
*/
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/delivery"
	"github.com/yourorg/rentradar/internal/env"
	"github.com/yourorg/rentradar/internal/filter"
	"github.com/yourorg/rentradar/internal/rates"
	"github.com/yourorg/rentradar/internal/source"
)

const (
	SourceFeed = "feed"
	SourceHTML = "html"

	LedgerMemory   = "memory"
	LedgerFile     = "file"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"

	ModeEmail = "email"
)

type Config struct {
	Areas  []source.Area
	Source string

	RatesFile    string
	FeeRate      float64
	feeRateSet   bool
	TargetProfit int
	Keywords     []string
	BaseURL      string

	DailyLimit int
	Window     budget.Window
	Location   *time.Location

	DeliveryMode     string
	DeliveryAttempts int
	WebhookURL       string
	SMTPServer       string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string
	MailFrom         string
	MailTo           string

	Interval       time.Duration
	Jitter         time.Duration
	RecoveryDelay  time.Duration
	RequestTimeout time.Duration
	UserAgent      string

	Ledger        string
	LedgerFile    string
	PGDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port     string
	RunOnce  bool
	LogLevel string
}

// Load reads the environment (after .env) into a Config. It does not
// validate; call Validate before use.
func Load() (*Config, error) {
	env.Load()

	c := &Config{
		Source:           strings.ToLower(env.Get("RENTRADAR_SOURCE", SourceFeed)),
		RatesFile:        env.Get("RENTRADAR_RATES_FILE", ""),
		FeeRate:          env.GetFloat("RENTRADAR_FEE_RATE", rates.DefaultFeeRate),
		feeRateSet:       os.Getenv("RENTRADAR_FEE_RATE") != "",
		TargetProfit:     env.GetInt("RENTRADAR_TARGET_PROFIT", 1200),
		Keywords:         env.List("RENTRADAR_EXCLUDE_KEYWORDS"),
		BaseURL:          env.Get("RENTRADAR_LISTING_BASE_URL", "https://www.rightmove.co.uk"),
		DailyLimit:       env.GetInt("RENTRADAR_DAILY_LIMIT", 5),
		DeliveryMode:     strings.ToLower(env.Get("RENTRADAR_DELIVERY_MODE", string(delivery.ModeJSON))),
		DeliveryAttempts: env.GetInt("RENTRADAR_DELIVERY_ATTEMPTS", 3),
		WebhookURL:       env.Get("RENTRADAR_WEBHOOK_URL", ""),
		SMTPServer:       env.Get("RENTRADAR_SMTP_SERVER", ""),
		SMTPPort:         env.GetInt("RENTRADAR_SMTP_PORT", 587),
		SMTPUser:         env.Get("RENTRADAR_SMTP_USER", ""),
		SMTPPass:         env.Get("RENTRADAR_SMTP_PASS", ""),
		MailFrom:         env.Get("RENTRADAR_SMTP_FROM", ""),
		MailTo:           env.Get("RENTRADAR_SMTP_TO", ""),
		Interval:         env.GetDuration("RENTRADAR_INTERVAL", time.Hour),
		Jitter:           env.GetDuration("RENTRADAR_JITTER", 5*time.Minute),
		RecoveryDelay:    env.GetDuration("RENTRADAR_RECOVERY", time.Minute),
		RequestTimeout:   env.GetDuration("RENTRADAR_REQUEST_TIMEOUT", 15*time.Second),
		UserAgent:        env.Get("RENTRADAR_USER_AGENT", ""),
		Ledger:           strings.ToLower(env.Get("RENTRADAR_LEDGER", LedgerMemory)),
		LedgerFile:       env.Get("RENTRADAR_LEDGER_FILE", "data/seen_ids.json"),
		PGDSN:            env.Get("PG_DSN", ""),
		RedisAddr:        env.Get("REDIS_ADDR", ""),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          env.GetInt("REDIS_DB", 0),
		Port:             env.Get("PORT", "4002"),
		RunOnce:          env.GetBool("RENTRADAR_RUN_ONCE", false),
		LogLevel:         env.Get("RENTRADAR_LOG_LEVEL", "info"),
	}
	if len(c.Keywords) == 0 {
		c.Keywords = filter.DefaultKeywords
	}

	var err error
	if path := env.Get("RENTRADAR_AREAS_FILE", ""); path != "" {
		c.Areas, err = loadAreas(path)
	} else {
		c.Areas, err = ParseAreas(os.Getenv("RENTRADAR_AREAS"))
	}
	if err != nil {
		return nil, err
	}

	c.Window, err = budget.ParseWindow(env.Get("RENTRADAR_ACTIVE_START", "08:00"), env.Get("RENTRADAR_ACTIVE_END", "22:00"))
	if err != nil {
		return nil, fmt.Errorf("config: active window: %w", err)
	}
	tz := env.Get("RENTRADAR_TIMEZONE", "Europe/London")
	c.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", tz, err)
	}
	return c, nil
}

// ParseAreas reads "FY1=https://...;FY2=https://..." pairs. Order is kept.
func ParseAreas(v string) ([]source.Area, error) {
	var out []source.Area
	for _, item := range env.SplitList(v) {
		code, loc, ok := strings.Cut(item, "=")
		code, loc = strings.ToUpper(strings.TrimSpace(code)), strings.TrimSpace(loc)
		if !ok || code == "" || loc == "" {
			return nil, fmt.Errorf("config: bad area %q, want CODE=URL", item)
		}
		out = append(out, source.Area{Code: code, Location: loc})
	}
	return out, nil
}

func loadAreas(path string) ([]source.Area, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read areas %s: %w", path, err)
	}
	var out []source.Area
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("config: parse areas %s: %w", path, err)
	}
	for i := range out {
		out[i].Code = strings.ToUpper(strings.TrimSpace(out[i].Code))
	}
	return out, nil
}

// RateTable loads RatesFile, or the built-in table, and applies an explicit
// RENTRADAR_FEE_RATE as the global fee.
func (c *Config) RateTable() (*rates.Table, error) {
	t := rates.DefaultTable()
	if c.RatesFile != "" {
		var err error
		if t, err = rates.Load(c.RatesFile); err != nil {
			return nil, err
		}
	}
	if c.feeRateSet {
		t.DefaultFee = rates.Fee(c.FeeRate)
	}
	return t, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Areas) == 0 {
		errs = append(errs, errors.New("no areas configured (RENTRADAR_AREAS or RENTRADAR_AREAS_FILE)"))
	}
	for _, a := range c.Areas {
		if a.Code == "" || a.Location == "" {
			errs = append(errs, fmt.Errorf("area %q needs a code and a location", a.Code))
		}
	}
	if c.DailyLimit < 1 {
		errs = append(errs, fmt.Errorf("daily limit must be >= 1, got %d", c.DailyLimit))
	}
	if c.TargetProfit <= 0 {
		errs = append(errs, fmt.Errorf("target profit must be > 0, got %d", c.TargetProfit))
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf("fee rate must be in [0,1), got %v", c.FeeRate))
	}
	if c.DeliveryAttempts < 1 {
		errs = append(errs, fmt.Errorf("delivery attempts must be >= 1, got %d", c.DeliveryAttempts))
	}

	switch c.Source {
	case SourceFeed, SourceHTML:
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}

	switch c.DeliveryMode {
	case string(delivery.ModeJSON), string(delivery.ModeText):
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("RENTRADAR_WEBHOOK_URL is required for webhook delivery"))
		}
	case ModeEmail:
		if c.SMTPServer == "" || c.MailTo == "" {
			errs = append(errs, errors.New("RENTRADAR_SMTP_SERVER and RENTRADAR_SMTP_TO are required for email delivery"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown delivery mode %q", c.DeliveryMode))
	}

	switch c.Ledger {
	case LedgerMemory:
	case LedgerFile:
		if c.LedgerFile == "" {
			errs = append(errs, errors.New("RENTRADAR_LEDGER_FILE is required for the file ledger"))
		}
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis ledger"))
		}
	case LedgerPostgres:
		if c.PGDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for the postgres ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger %q", c.Ledger))
	}
	return errors.Join(errs...)
}
