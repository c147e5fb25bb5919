package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	connKey      contextKey = "db_conn"
	txKey        contextKey = "db_tx"
	projectIDKey contextKey = "project_id"
)

// ConnFromContext retrieves a checked-out connection from context, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(connKey).(*pgxpool.Conn)
	return conn
}

// WithConn attaches a checked-out connection to the context.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, connKey, conn)
}

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction against pool (or an already-acquired
// connection in context) and returns a context carrying it. The caller must
// commit or rollback the returned pgx.Tx; nested transactions are never
// created — a context that already carries one is reused unchanged.
func WithTx(ctx context.Context, pool *pgxpool.Pool) (context.Context, pgx.Tx, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return ctx, tx, nil
	}
	var beginner interface {
		Begin(context.Context) (pgx.Tx, error)
	}
	if conn := ConnFromContext(ctx); conn != nil {
		beginner = conn
	} else {
		beginner = pool
	}
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey, tx), tx, nil
}

// ProjectIDFromContext retrieves the per-project scoping id. The repository
// writes it to the projectId column of each row it creates or updates; no
// read or search query filters by it.
func ProjectIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(projectIDKey).(string)
	return id
}

func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}
