package budget

import (
	"fmt"
	"time"
)

// Window is a daily active period given as offsets from local midnight.
// End before Start wraps past midnight; Start == End covers the whole day.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow parses "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	return Window{Start: s, End: e}, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (w Window) Duration() time.Duration {
	switch {
	case w.End > w.Start:
		return w.End - w.Start
	case w.End < w.Start:
		return 24*time.Hour - w.Start + w.End
	default:
		return 24 * time.Hour
	}
}

// Contains reports whether t's wall-clock time falls inside the window.
func (w Window) Contains(t time.Time) bool {
	off := sinceMidnight(t)
	switch {
	case w.Start < w.End:
		return off >= w.Start && off < w.End
	case w.Start > w.End:
		return off >= w.Start || off < w.End
	default:
		return true
	}
}

// NextOpen returns t itself when inside the window, else the next opening.
func (w Window) NextOpen(t time.Time) time.Time {
	if w.Contains(t) {
		return t
	}
	open := midnight(t).Add(w.Start)
	if !open.After(t) {
		open = midnight(t).AddDate(0, 0, 1).Add(w.Start)
	}
	return open
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", clock(w.Start), clock(w.End))
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
