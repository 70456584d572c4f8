package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/lexflow-notify/internal/metrics"
	"github.com/rickgao/lexflow-notify/internal/notification"
)

const insertNotification = `
	INSERT INTO notifications (id, title, message, category, ts, payload, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// Writer batches delivered notifications into the notifications table.
// It implements notification.Archiver.
type Writer struct {
	cfg     WriterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	input *GrowableBuffer[notificationRow]
	db    BatchSender

	// Batching
	batch   []notificationRow
	batchMu sync.Mutex
	stats   WriterStats

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// NewWriter creates a Writer. Metrics may be nil.
func NewWriter(cfg WriterConfig, db BatchSender, m *metrics.Metrics, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Writer{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		input:   NewGrowableBuffer[notificationRow](cfg.BufferSize),
		db:      db,
		batch:   make([]notificationRow, 0, cfg.BatchSize),
		now:     time.Now,
	}
}

// Archive enqueues n without blocking. Notifications arriving after Stop are dropped.
func (w *Writer) Archive(n notification.Notification) {
	if !w.input.Send(w.transform(n)) {
		w.batchMu.Lock()
		w.stats.Dropped++
		w.batchMu.Unlock()
		w.metrics.ArchiveDropped()
	}
}

// Start begins draining the buffer into the database.
func (w *Writer) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop(ctx)
	go w.flushLoop(ctx)

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop stops the loops, then flushes everything still buffered using ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
		return ctx.Err()
	}

	for {
		rows := w.input.DrainTo(w.cfg.BatchSize)
		if len(rows) == 0 {
			break
		}
		w.appendRows(ctx, rows)
	}
	w.flush(ctx)

	w.logger.Info("archive writer stopped")
	return nil
}

// Run starts the writer and stops it when ctx is done.
func (w *Writer) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return w.Stop(stopCtx)
}

// Stats returns current counters.
func (w *Writer) Stats() WriterStats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop moves rows from the buffer into the pending batch.
func (w *Writer) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	// In-flight inserts finish even when the loop is stopping
	dbCtx := context.WithoutCancel(ctx)

	for {
		rows := w.input.DrainTo(w.cfg.BatchSize)
		if len(rows) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.input.Ready():
				continue
			}
		}
		w.appendRows(dbCtx, rows)
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	dbCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush(dbCtx)
		}
	}
}

func (w *Writer) appendRows(ctx context.Context, rows []notificationRow) {
	w.batchMu.Lock()
	w.batch = append(w.batch, rows...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
}

// transform converts a notification to a row. Notifications without an id get a generated one.
func (w *Writer) transform(n notification.Notification) notificationRow {
	row := notificationRow{
		ID:         n.ID,
		Title:      n.Title,
		Message:    n.Message,
		Category:   n.Category,
		Payload:    n.Raw,
		ReceivedAt: w.now(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if ts := n.Time(); !ts.IsZero() {
		row.Timestamp = &ts
	}
	if len(row.Payload) == 0 {
		row.Payload = []byte("{}")
	}
	return row
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]notificationRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		w.metrics.ArchiveFailed()
		return
	}

	inserted := len(batch) - conflicts
	w.batchMu.Lock()
	w.stats.Inserts += int64(inserted)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()
	w.metrics.ArchiveFlushed(inserted, conflicts)

	w.logger.Debug("flushed notifications",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []notificationRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertNotification,
			r.ID, r.Title, r.Message, r.Category, r.Timestamp, string(r.Payload), r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
