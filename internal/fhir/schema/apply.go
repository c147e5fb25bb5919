package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplyResult reports how an Apply run went, distinguishing statements that
// created new structure from ones that found it already present.
type ApplyResult struct {
	Applied int
	Skipped int
	Errors  []StatementError
}

// StatementError pairs a failed statement with the driver error it produced.
type StatementError struct {
	Statement string
	Err       error
}

func (e StatementError) Error() string {
	return fmt.Sprintf("%s: %v", e.Statement, e.Err)
}

// Apply executes stmts against pool in order, tolerating "already exists" as
// a skip (the synthesizer always emits IF NOT EXISTS, so this only fires on
// races against a concurrent synthesis run) and aborting on any other error.
// Grounded on the administrative migration driver's transaction-per-statement
// idiom: each statement runs in its own transaction so one failure does not
// roll back structure already committed by earlier statements.
func Apply(ctx context.Context, pool *pgxpool.Pool, stmts []string) (ApplyResult, error) {
	var result ApplyResult
	for _, stmt := range stmts {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return result, fmt.Errorf("begin ddl transaction: %w", err)
		}
		_, execErr := tx.Exec(ctx, stmt)
		if execErr != nil {
			_ = tx.Rollback(ctx)
			if isAlreadyExists(execErr) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, StatementError{Statement: stmt, Err: execErr})
			break
		}
		if err := tx.Commit(ctx); err != nil {
			return result, fmt.Errorf("commit ddl statement: %w", err)
		}
		result.Applied++
	}
	if len(result.Errors) > 0 {
		return result, fmt.Errorf("schema apply: %d statement(s) failed", len(result.Errors))
	}
	return result, nil
}

// ApplyAll emits and applies DDL for every already-synthesized resource
// table set plus the global lookup tables in one run.
func ApplyAll(ctx context.Context, pool *pgxpool.Pool, sets []ResourceTableSet) (ApplyResult, error) {
	var stmts []string
	stmts = append(stmts, EmitGlobalLookupDDL()...)
	for _, set := range sets {
		stmts = append(stmts, EmitDDL(set)...)
	}
	return Apply(ctx, pool, stmts)
}

// sqlState mirrors the subset of pgconn.PgError the driver needs without
// importing it directly into the error-classification path.
type sqlState interface {
	SQLState() string
}

func isAlreadyExists(err error) bool {
	var pgErr sqlState
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "42P07", // duplicate_table
			"42710", // duplicate_object (index, etc.)
			"42701": // duplicate_column
			return true
		}
	}
	return false
}
