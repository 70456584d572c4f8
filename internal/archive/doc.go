// Package archive writes delivered notifications to PostgreSQL history.
//
// Delivery enqueues into a growable buffer without blocking. A batch writer
// drains the buffer and inserts rows with pgx.Batch, flushing on batch size
// or interval. Inserts are append-only: a notification id already present
// is skipped with ON CONFLICT DO NOTHING.
package archive
