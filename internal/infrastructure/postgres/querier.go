package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstrae pool y transacción para que los repositorios funcionen con ambos
// (pgxpool.Pool, pgx.Tx y pgxmock lo implementan).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner origen de transacciones (pgxpool.Pool o pgxmock).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
