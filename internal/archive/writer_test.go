package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rickgao/lexflow-notify/internal/metrics"
	"github.com/rickgao/lexflow-notify/internal/notification"
)

// fakeResults replays command tags for queued statements.
type fakeResults struct {
	tags []pgconn.CommandTag
	err  error
	i    int
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	tag := r.tags[r.i]
	r.i++
	return tag, nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

// fakeDB records batches and reports a conflict for ids it has seen.
type fakeDB struct {
	mu      sync.Mutex
	err     error
	seen    map[string]bool
	batches [][]*pgx.QueuedQuery
}

func newFakeDB() *fakeDB {
	return &fakeDB{seen: make(map[string]bool)}
}

func (db *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.batches = append(db.batches, b.QueuedQueries)
	if db.err != nil {
		return &fakeResults{err: db.err}
	}

	res := &fakeResults{}
	for _, q := range b.QueuedQueries {
		id := q.Arguments[0].(string)
		if db.seen[id] {
			res.tags = append(res.tags, pgconn.NewCommandTag("INSERT 0 0"))
			continue
		}
		db.seen[id] = true
		res.tags = append(res.tags, pgconn.NewCommandTag("INSERT 0 1"))
	}
	return res
}

func (db *fakeDB) rowCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, b := range db.batches {
		n += len(b)
	}
	return n
}

func testNotification(id string) notification.Notification {
	raw := `{"id":"` + id + `","title":"Filing due","message":"Brief due Friday","timestamp":"2025-03-01T09:30:00Z","category":"deadline","matter":"M-42"}`
	return notification.Notification{
		ID:        id,
		Title:     "Filing due",
		Message:   "Brief due Friday",
		Timestamp: "2025-03-01T09:30:00Z",
		Category:  "deadline",
		Raw:       json.RawMessage(raw),
	}
}

func TestWriter_Transform(t *testing.T) {
	w := NewWriter(DefaultWriterConfig(), newFakeDB(), nil, nil)
	receivedAt := time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC)
	w.now = func() time.Time { return receivedAt }

	n := testNotification("n-1")
	row := w.transform(n)

	if row.ID != "n-1" {
		t.Errorf("ID = %q, want n-1", row.ID)
	}
	if row.Title != "Filing due" || row.Message != "Brief due Friday" || row.Category != "deadline" {
		t.Errorf("row = %+v, want fields copied from notification", row)
	}
	if row.Timestamp == nil || !row.Timestamp.Equal(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v, want 2025-03-01T09:30:00Z", row.Timestamp)
	}
	if string(row.Payload) != string(n.Raw) {
		t.Errorf("Payload = %s, want raw payload verbatim", row.Payload)
	}
	if !row.ReceivedAt.Equal(receivedAt) {
		t.Errorf("ReceivedAt = %v, want %v", row.ReceivedAt, receivedAt)
	}
}

func TestWriter_Transform_Defaults(t *testing.T) {
	w := NewWriter(DefaultWriterConfig(), newFakeDB(), nil, nil)

	row := w.transform(notification.Notification{Title: "No id"})

	if _, err := uuid.Parse(row.ID); err != nil {
		t.Errorf("ID = %q, want generated uuid: %v", row.ID, err)
	}
	if row.Timestamp != nil {
		t.Errorf("Timestamp = %v, want nil", row.Timestamp)
	}
	if string(row.Payload) != "{}" {
		t.Errorf("Payload = %s, want {}", row.Payload)
	}
}

func TestWriter_FlushConflicts(t *testing.T) {
	db := newFakeDB()
	m := metrics.New()
	w := NewWriter(DefaultWriterConfig(), db, m, nil)

	ctx := context.Background()
	w.appendRows(ctx, []notificationRow{
		w.transform(testNotification("a")),
		w.transform(testNotification("a")),
		w.transform(testNotification("b")),
	})
	w.flush(ctx)

	stats := w.Stats()
	if stats.Inserts != 2 {
		t.Errorf("Inserts = %d, want 2", stats.Inserts)
	}
	if stats.Conflicts != 1 {
		t.Errorf("Conflicts = %d, want 1", stats.Conflicts)
	}
	if stats.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", stats.Flushes)
	}
	if got := testutil.ToFloat64(m.ArchiveInsertsTotal); got != 2 {
		t.Errorf("archive inserts metric = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ArchiveConflictsTotal); got != 1 {
		t.Errorf("archive conflicts metric = %v, want 1", got)
	}

	q := db.batches[0][0]
	if !strings.Contains(q.SQL, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("SQL = %q, want ON CONFLICT (id) DO NOTHING", q.SQL)
	}
	if len(q.Arguments) != 7 {
		t.Errorf("argument count = %d, want 7", len(q.Arguments))
	}
}

func TestWriter_FlushError(t *testing.T) {
	db := newFakeDB()
	db.err = errors.New("connection refused")
	m := metrics.New()
	w := NewWriter(DefaultWriterConfig(), db, m, nil)

	ctx := context.Background()
	w.appendRows(ctx, []notificationRow{w.transform(testNotification("a"))})
	w.flush(ctx)

	stats := w.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.Inserts != 0 {
		t.Errorf("Inserts = %d, want 0", stats.Inserts)
	}
	if got := testutil.ToFloat64(m.ArchiveErrorsTotal); got != 1 {
		t.Errorf("archive errors metric = %v, want 1", got)
	}
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	db := newFakeDB()
	cfg := WriterConfig{
		BatchSize:     2,
		FlushInterval: time.Hour,
		BufferSize:    10,
	}
	w := NewWriter(cfg, db, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.Archive(testNotification("a"))
	w.Archive(testNotification("b"))

	deadline := time.Now().Add(time.Second)
	for w.Stats().Flushes == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := w.Stats().Inserts; got != 2 {
		t.Errorf("Inserts = %d, want 2", got)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_StopFlushesRemaining(t *testing.T) {
	db := newFakeDB()
	cfg := WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		BufferSize:    10,
	}
	w := NewWriter(cfg, db, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		w.Archive(testNotification(id))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := db.rowCount(); got != 3 {
		t.Errorf("rows written = %d, want 3", got)
	}
}

func TestWriter_ArchiveAfterStop(t *testing.T) {
	m := metrics.New()
	w := NewWriter(DefaultWriterConfig(), newFakeDB(), m, nil)

	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	w.Archive(testNotification("late"))

	if got := w.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.ArchiveDroppedTotal); got != 1 {
		t.Errorf("archive dropped metric = %v, want 1", got)
	}
}

func TestWriter_Run(t *testing.T) {
	db := newFakeDB()
	w := NewWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour}, db, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Second) }()

	w.Archive(testNotification("a"))
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := db.rowCount(); got != 1 {
		t.Errorf("rows written = %d, want 1", got)
	}
}
