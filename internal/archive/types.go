package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Default writer settings.
const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultBufferSize    = 1000
)

// WriterConfig configures batching.
type WriterConfig struct {
	BatchSize     int           // Rows per INSERT batch
	FlushInterval time.Duration // Max time a row waits before flush
	BufferSize    int           // Initial buffer capacity
}

// DefaultWriterConfig returns the default batching settings.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
		BufferSize:    DefaultBufferSize,
	}
}

// WriterStats counts writer outcomes since start.
type WriterStats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}

// BatchSender sends a pgx batch. Satisfied by *pgxpool.Pool and pgx.Conn.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Execer runs a statement. Satisfied by *pgxpool.Pool and pgx.Conn.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// notificationRow is one row of the notifications table.
type notificationRow struct {
	ID         string
	Title      string
	Message    string
	Category   string
	Timestamp  *time.Time // nil when the payload timestamp is absent or unparseable
	Payload    json.RawMessage
	ReceivedAt time.Time
}
