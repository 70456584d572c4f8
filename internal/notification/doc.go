// Package notification implements the Message Decoder and Delivery Sink.
//
// Frames arriving from the Connection Manager are decoded as JSON envelopes:
//   - {"type":"notification","payload":{...}} is delivered
//   - every other shape is dropped silently
//
// Delivery records the notification in a Sink (the in-memory Store in
// production) and raises a transient alert. Neither step can fail the
// connection that produced the frame.
package notification
