package ledger

import (
	"context"
	"fmt"

	"github.com/yourorg/rentradar/internal/store"
)

type Postgres struct{ st *store.Store }

func NewPostgres(st *store.Store) *Postgres { return &Postgres{st: st} }

func (p *Postgres) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := p.st.IsSeen(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ledger: postgres seen %s: %w", id, err)
	}
	return ok, nil
}

func (p *Postgres) MarkSeen(ctx context.Context, id string) error {
	if err := p.st.MarkSeen(ctx, id); err != nil {
		return fmt.Errorf("ledger: postgres mark %s: %w", id, err)
	}
	return nil
}
