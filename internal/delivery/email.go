package delivery

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/logger"
)

// EmailConfig holds SMTP configuration for the email sink.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Attempts   int
	BaseDelay  time.Duration
	Logger     *logger.Logger
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink sends each lead as a plain-text email.
type EmailSink struct {
	cfg    EmailConfig
	dialer dialer
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewEmailSink(cfg EmailConfig) *EmailSink {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second
	return &EmailSink{cfg: cfg, dialer: d, sleep: sleepCtx}
}

func (s *EmailSink) Deliver(ctx context.Context, l listing.EvaluatedListing) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", Subject(l))
	m.SetBody("text/plain", Format(l))

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		if lastErr = s.dialer.DialAndSend(m); lastErr == nil {
			return nil
		}
		if attempt == s.cfg.Attempts {
			break
		}
		wait := s.cfg.BaseDelay * time.Duration(attempt)
		if s.cfg.Logger != nil {
			s.cfg.Logger.Warn("[email] send %s failed (attempt %d/%d): %v, retrying in %v", l.ID, attempt, s.cfg.Attempts, lastErr, wait)
		}
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("delivery: email %s failed after %d attempts: %w", l.ID, s.cfg.Attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
