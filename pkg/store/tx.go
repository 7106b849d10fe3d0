package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryExecer is the subset of *pgxpool.Pool and pgx.Tx that row-level save
// helpers need, letting the same helper run standalone or inside a larger
// transaction (e.g. MergeInsight, AdvanceCase).
type queryExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
