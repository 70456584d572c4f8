package archive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	sql []string
	err error
}

func (e *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), e.err
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	if len(db.sql) != 1 {
		t.Fatalf("Exec called %d times, want 1", len(db.sql))
	}
	if !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS notifications") {
		t.Errorf("schema SQL missing notifications table: %q", db.sql[0])
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	cause := errors.New("permission denied")
	db := &fakeExecer{err: cause}

	err := EnsureSchema(context.Background(), db)
	if !errors.Is(err, cause) {
		t.Errorf("EnsureSchema() error = %v, want wrapped %v", err, cause)
	}
}
