// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains at most one WebSocket transport to the notification endpoint
//   - Tracks an explicit state (idle, connecting, open, pending_retry, terminal)
//   - Reconnects with exponential backoff up to a retry ceiling
//   - Hands every received frame to a FrameHandler (the notification decoder)
package connection
