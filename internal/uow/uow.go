package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/dirabus/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. Hooks
// registered through after run in order once the commit succeeds and are
// dropped otherwise.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		hooks = hooks[:0]
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

// Runner binds a repository to each transaction so callers work against
// R instead of the raw transaction handle.
type Runner[R any] struct {
	uow  *UoW
	bind func(tx postgres.DB) R
}

func NewRunner[R any](u *UoW, bind func(tx postgres.DB) R) *Runner[R] {
	return &Runner[R]{uow: u, bind: bind}
}

func (r *Runner[R]) Do(
	ctx context.Context,
	fn func(ctx context.Context, repo R, after func(AfterCommit)) error,
) error {
	return r.uow.Do(ctx, func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error {
		return fn(ctx, r.bind(tx), after)
	})
}
