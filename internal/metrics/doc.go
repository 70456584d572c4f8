// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket connection state, attempts, and scheduled retries
//   - Frame decode outcomes and notification deliveries
//   - Archive batch inserts, conflicts, and errors
//
// Every method is safe to call on a nil *Metrics.
package metrics
