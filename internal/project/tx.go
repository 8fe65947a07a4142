package project

import (
	"context"

	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/message"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgTxRunner runs service operations in pgx transactions.
type PgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner creates a transaction runner on pool.
func NewTxRunner(pool *pgxpool.Pool) *PgTxRunner {
	return &PgTxRunner{pool: pool}
}

// RunInTx begins a transaction and binds every store to it.
func (r *PgTxRunner) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Projects() Repository       { return NewStore(t.tx) }
func (t pgTx) Contacts() ContactDirectory { return contact.NewStore(t.tx) }
func (t pgTx) Messages() Messenger        { return message.NewStore(t.tx) }
