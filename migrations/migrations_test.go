package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExec struct {
	stmts []string
	fail  bool
}

func (r *recordingExec) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.fail {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	r.stmts = append(r.stmts, sql)
	return pgconn.CommandTag{}, nil
}

func TestApplyRunsInOrder(t *testing.T) {
	rec := &recordingExec{}
	var applied []string
	if err := Apply(context.Background(), rec, func(n string) { applied = append(applied, n) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	names := Names()
	if len(names) == 0 || names[0] != "001_schema.sql" {
		t.Fatalf("Names() = %v", names)
	}
	if len(applied) != len(names) || len(rec.stmts) != len(names) {
		t.Fatalf("applied %v, ran %d statements, want %d", applied, len(rec.stmts), len(names))
	}
	if !strings.Contains(rec.stmts[0], "CREATE TABLE IF NOT EXISTS menu_items") {
		t.Error("first migration should create menu_items")
	}
}

func TestApplyStopsOnError(t *testing.T) {
	err := Apply(context.Background(), &recordingExec{fail: true}, nil)
	if err == nil || !strings.Contains(err.Error(), "001_schema.sql") {
		t.Fatalf("expected error naming the migration, got %v", err)
	}
}
