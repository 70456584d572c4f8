package archive

import (
	"context"
	"fmt"
)

// Schema creates the notifications history table.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	ts          TIMESTAMPTZ,
	payload     JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS notifications_received_at_idx
	ON notifications (received_at DESC);
`

// EnsureSchema creates the notifications table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create notifications schema: %w", err)
	}
	return nil
}
