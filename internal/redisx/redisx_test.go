package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yourorg/rentradar/internal/budget"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSAdd(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	added, err := c.SAdd(ctx, "k", "a")
	if err != nil || !added {
		t.Fatalf("first SAdd = %v, %v", added, err)
	}
	added, err = c.SAdd(ctx, "k", "a")
	if err != nil || added {
		t.Fatalf("second SAdd = %v, %v", added, err)
	}
	if ok, _ := c.SIsMember(ctx, "k", "a"); !ok {
		t.Error("a should be a member")
	}
	if n, _ := c.SCard(ctx, "k"); n != 1 {
		t.Errorf("SCard = %d", n)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	if _, ok, err := c.LoadBudget(ctx); err != nil || ok {
		t.Fatalf("empty LoadBudget = %v, %v", ok, err)
	}
	want := budget.State{Day: "2024-06-01", Sent: 3, Limit: 5}
	if err := c.SaveBudget(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.LoadBudget(ctx)
	if err != nil || !ok || got != want {
		t.Fatalf("LoadBudget = %+v, %v, %v", got, ok, err)
	}
}
