package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/filter"
	"github.com/yourorg/rentradar/internal/ledger"
	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/logger"
	"github.com/yourorg/rentradar/internal/rates"
	"github.com/yourorg/rentradar/internal/source"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fakeSource struct {
	byArea map[string][]listing.RawListing
	errs   map[string]error
	calls  int
	panics bool
}

func (f *fakeSource) Fetch(_ context.Context, area source.Area) ([]listing.RawListing, error) {
	f.calls++
	if f.panics {
		f.panics = false
		panic("parser blew up")
	}
	if err := f.errs[area.Code]; err != nil {
		return nil, err
	}
	return f.byArea[area.Code], nil
}

type fakeSink struct {
	delivered []string
	fail      map[string]bool
	after     func()
}

func (f *fakeSink) Deliver(_ context.Context, l listing.EvaluatedListing) error {
	if f.after != nil {
		defer f.after()
	}
	if f.fail[l.ID] {
		return errors.New("webhook: 500")
	}
	f.delivered = append(f.delivered, l.ID)
	return nil
}

type errLedger struct{}

func (errLedger) Seen(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (errLedger) MarkSeen(context.Context, string) error     { return nil }

func lst(id string) listing.RawListing {
	return listing.RawListing{ID: id, Address: "Dickson Road, Blackpool", Bedrooms: 2, RentPCM: 850}
}

func newOrchestrator(c *clock, limit int, src *fakeSource, sink *fakeSink, areas ...string) (*Orchestrator, *ledger.Memory, *budget.Budget) {
	led := ledger.NewMemory()
	b := budget.New(budget.Config{Limit: limit, Location: time.UTC, Now: c.now, Spacing: -1})
	var as []source.Area
	for _, a := range areas {
		as = append(as, source.Area{Code: a, Location: "https://example.test/" + a})
	}
	o := &Orchestrator{
		Source:    src,
		Filter:    filter.New(filter.DefaultKeywords),
		Ledger:    led,
		Budget:    b,
		Sink:      sink,
		Evaluator: &Evaluator{Rates: rates.DefaultTable(), Target: 1200, Now: c.now},
		Logger:    logger.NewWithWriters(io.Discard, io.Discard, logger.LevelDebug),
		Config:    Config{Areas: as, Interval: time.Hour, RecoveryDelay: time.Minute},
	}
	return o, led, b
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := &Evaluator{Rates: rates.DefaultTable(), Target: 1200, Now: func() time.Time { return now }}
	raw := lst("148203311")
	raw.Area = "FY1"

	got := e.Evaluate(raw)
	if got.Profit70 != 781 {
		t.Errorf("Profit70 = %d; want 781", got.Profit70)
	}
	if got.Profit50 != 143 || got.Profit100 != 1737 {
		t.Errorf("scenarios = %d/%d; want 143/1737", got.Profit50, got.Profit100)
	}
	if got.Score != 6.5 || got.Tier != listing.TierRed {
		t.Errorf("classification = %.1f %s; want 6.5 red", got.Score, got.Tier)
	}
	if got.OccupancyPercent != 60 || got.NightlyRate != 125 || got.Bills != 600 {
		t.Errorf("rate fields = %d%% %.0f %.0f", got.OccupancyPercent, got.NightlyRate, got.Bills)
	}
	if got.DeliveryURL != "https://www.rightmove.co.uk/properties/148203311" {
		t.Errorf("DeliveryURL = %q", got.DeliveryURL)
	}
	if got.Target != 1200 || !got.EvaluatedAt.Equal(now) {
		t.Errorf("Target/EvaluatedAt = %d %v", got.Target, got.EvaluatedAt)
	}
}

func TestEvaluateRoundsOccupancy(t *testing.T) {
	for _, occ := range []struct {
		in   float64
		want int
	}{{0.57, 57}, {0.29, 29}, {0.6, 60}, {0.005, 1}} {
		tbl := &rates.Table{Areas: map[string]rates.Area{
			"FY1": {Default: &rates.Entry{NightlyRate: 100, Occupancy: occ.in, MonthlyBills: 600}},
		}}
		raw := lst("1")
		raw.Area = "FY1"
		got := (&Evaluator{Rates: tbl, Target: 1200}).Evaluate(raw)
		if got.OccupancyPercent != occ.want {
			t.Errorf("occupancy %v shown as %d%%; want %d%%", occ.in, got.OccupancyPercent, occ.want)
		}
	}
}

func TestDeliveryURL(t *testing.T) {
	e := &Evaluator{BaseURL: "https://listings.example/"}
	cases := []struct {
		path string
		want string
	}{
		{"", "https://listings.example/properties/42"},
		{"/properties/42#/", "https://listings.example/properties/42#/"},
		{"properties/42", "https://listings.example/properties/42"},
		{"https://other.example/p/42", "https://other.example/p/42"},
	}
	for _, c := range cases {
		got := e.deliveryURL(listing.RawListing{ID: "42", URLPath: c.path})
		if got != c.want {
			t.Errorf("deliveryURL(%q) = %q; want %q", c.path, got, c.want)
		}
	}
}

func TestSameIDDeliveredOnce(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{
		"FY1": {lst("1"), lst("1")},
		"FY2": {lst("1")},
	}}
	sink := &fakeSink{}
	o, _, _ := newOrchestrator(c, 5, src, sink, "FY1", "FY2")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if len(sink.delivered) != 1 {
		t.Fatalf("delivered %v; want exactly one", sink.delivered)
	}
	if stats[0].Duplicates != 1 || stats[1].Duplicates != 1 {
		t.Errorf("duplicate counts = %d/%d", stats[0].Duplicates, stats[1].Duplicates)
	}
}

func TestDailyLimitStopsSixth(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{
		"FY1": {lst("1"), lst("2"), lst("3"), lst("4"), lst("5"), lst("6")},
	}}
	sink := &fakeSink{}
	o, led, b := newOrchestrator(c, 5, src, sink, "FY1")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.delivered) != 5 {
		t.Fatalf("delivered %d; want 5", len(sink.delivered))
	}
	if stats[0].OverBudget != 1 {
		t.Errorf("OverBudget = %d; want 1", stats[0].OverBudget)
	}
	if seen, _ := led.Seen(context.Background(), "6"); !seen {
		t.Error("over-budget listing should still be marked seen")
	}
	if b.Snapshot().Sent != 5 {
		t.Errorf("Sent = %d", b.Snapshot().Sent)
	}
}

func TestDisallowedNeverReachesLedger(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	room := lst("9")
	room.Category = "Room to rent"
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {room}}}
	sink := &fakeSink{}
	o, led, _ := newOrchestrator(c, 5, src, sink, "FY1")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if led.Len() != 0 {
		t.Errorf("ledger has %v", led.IDs())
	}
	if len(sink.delivered) != 0 || stats[0].Disallowed != 1 {
		t.Errorf("delivered %v, disallowed %d", sink.delivered, stats[0].Disallowed)
	}
}

func TestMalformedSkippedNotSeen(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	bad := lst("7")
	bad.RentPCM = 0
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {bad, lst("8")}}}
	sink := &fakeSink{}
	o, led, _ := newOrchestrator(c, 5, src, sink, "FY1")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats[0].Malformed != 1 || stats[0].Sent != 1 {
		t.Errorf("stats = %+v", stats[0])
	}
	if seen, _ := led.Seen(context.Background(), "7"); seen {
		t.Error("malformed listing should not be marked seen")
	}
}

func TestFailedDeliveryMarkedSeenNotSpent(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1"), lst("2")}}}
	sink := &fakeSink{fail: map[string]bool{"1": true}}
	o, led, b := newOrchestrator(c, 5, src, sink, "FY1")
	pub := events.NewInMemory(8)
	o.Publisher = pub

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if seen, _ := led.Seen(context.Background(), "1"); !seen {
		t.Error("failed listing should be marked seen")
	}
	if b.Snapshot().Sent != 1 {
		t.Errorf("Sent = %d; want 1 (failure must not spend)", b.Snapshot().Sent)
	}
	if stats[0].Failed != 1 || stats[0].Sent != 1 {
		t.Errorf("stats = %+v", stats[0])
	}

	first := <-pub.SubscribeLeadOutcome()
	if first.ID != "1" || first.Status != events.StatusDeliveryFailed || first.Reason == "" {
		t.Errorf("first outcome = %+v", first)
	}
	second := <-pub.SubscribeLeadOutcome()
	if second.Status != events.StatusDelivered || second.Profit70 != 781 {
		t.Errorf("second outcome = %+v", second)
	}

	// never retried on a later cycle
	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.delivered) != 1 {
		t.Errorf("delivered %v", sink.delivered)
	}
}

func TestFetchErrorSkipsArea(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{
		byArea: map[string][]listing.RawListing{"FY2": {lst("2")}},
		errs:   map[string]error{"FY1": source.ErrStatus},
	}
	sink := &fakeSink{}
	o, _, _ := newOrchestrator(c, 5, src, sink, "FY1", "FY2")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !errors.Is(stats[0].FetchErr, source.ErrStatus) {
		t.Errorf("FetchErr = %v", stats[0].FetchErr)
	}
	if len(sink.delivered) != 1 || sink.delivered[0] != "2" {
		t.Errorf("delivered %v", sink.delivered)
	}
}

func TestLedgerErrorAbortsCycle(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1")}, "FY2": {lst("2")}}}
	sink := &fakeSink{}
	o, _, _ := newOrchestrator(c, 5, src, sink, "FY1", "FY2")
	o.Ledger = errLedger{}

	if _, err := o.RunOnce(context.Background()); err == nil {
		t.Fatal("expected ledger error")
	}
	if len(sink.delivered) != 0 || src.calls != 1 {
		t.Errorf("cycle continued: delivered %v, fetches %d", sink.delivered, src.calls)
	}
}

func TestBudgetResetsMidCycle(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 23, 58, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1"), lst("2"), lst("3")}}}
	sink := &fakeSink{}
	sink.after = func() { c.t = c.t.Add(time.Minute) }
	o, _, b := newOrchestrator(c, 2, src, sink, "FY1")

	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.delivered) != 3 {
		t.Fatalf("delivered %v; want all three across midnight", sink.delivered)
	}
	// the 23:59 send is charged to June 1st, so only the 00:00 one counts today
	snap := b.Snapshot()
	if snap.Day != "2024-06-02" || snap.Sent != 1 {
		t.Errorf("budget = %+v", snap)
	}
}

func TestSendFinishingAfterMidnightChargesAllowedDay(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1"), lst("2")}}}
	sink := &fakeSink{}
	sink.after = func() { c.t = c.t.Add(2 * time.Minute) }
	o, _, b := newOrchestrator(c, 1, src, sink, "FY1")

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.delivered) != 2 || stats[0].OverBudget != 0 {
		t.Fatalf("delivered %v, over budget %d; want both sent", sink.delivered, stats[0].OverBudget)
	}
	if snap := b.Snapshot(); snap.Day != "2024-06-02" || snap.Sent != 1 {
		t.Errorf("budget = %+v", snap)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1")}}, panics: true}
	sink := &fakeSink{}
	o, _, _ := newOrchestrator(c, 5, src, sink, "FY1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	o.jitter = func(time.Duration) time.Duration { return 0 }
	o.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Minute || sleeps[1] != time.Hour {
		t.Errorf("sleeps = %v; want [1m 1h]", sleeps)
	}
	if len(sink.delivered) != 1 {
		t.Errorf("delivered %v", sink.delivered)
	}
}

func TestRunWaitsForWindow(t *testing.T) {
	c := &clock{time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)}
	src := &fakeSource{byArea: map[string][]listing.RawListing{"FY1": {lst("1")}}}
	sink := &fakeSink{}
	o, _, _ := newOrchestrator(c, 5, src, sink, "FY1")
	w, err := budget.ParseWindow("08:00", "22:00")
	if err != nil {
		t.Fatal(err)
	}
	o.Budget = budget.New(budget.Config{Limit: 5, Window: w, Location: time.UTC, Now: c.now, Spacing: -1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		cancel()
		return context.Canceled
	}

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.calls != 0 {
		t.Errorf("fetched %d times outside the window", src.calls)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Hour {
		t.Errorf("sleeps = %v; want capped at interval", sleeps)
	}
}

func TestValidateRequiresAreas(t *testing.T) {
	c := &clock{time.Now()}
	o, _, _ := newOrchestrator(c, 5, &fakeSource{}, &fakeSink{})
	if _, err := o.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error without areas")
	}
}
