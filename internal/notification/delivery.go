package notification

import (
	"log/slog"

	"github.com/rickgao/lexflow-notify/internal/metrics"
)

// Handler decodes frames and delivers notifications to a Sink and Alerter.
// It implements the frame handler consumed by the Connection Manager.
type Handler struct {
	sink     Sink
	alerter  Alerter
	archiver Archiver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithArchiver enqueues every delivered notification into a.
func WithArchiver(a Archiver) HandlerOption {
	return func(h *Handler) { h.archiver = a }
}

// WithMetrics records decode and delivery outcomes.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a Handler. alerter may be nil.
func NewHandler(sink Sink, alerter Alerter, opts ...HandlerOption) *Handler {
	h := &Handler{
		sink:    sink,
		alerter: alerter,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// HandleFrame decodes data and delivers it if it is a notification.
// Malformed or unrecognized frames are dropped without error.
func (h *Handler) HandleFrame(data []byte) {
	h.metrics.FrameReceived()

	n, reason := decode(data)
	if reason != "" {
		h.metrics.FrameDropped(string(reason))
		h.logger.Debug("frame dropped", "reason", reason, "size", len(data))
		return
	}

	h.Deliver(n)
}

// Deliver records n in the sink, archives it, and raises a transient alert.
func (h *Handler) Deliver(n Notification) {
	h.sink.AddNotification(n)
	h.metrics.NotificationDelivered()

	if h.archiver != nil {
		h.archiver.Archive(n)
	}

	h.alert(n)
}

// alert presents n, containing any panic from the presentation layer.
func (h *Handler) alert(n Notification) {
	if h.alerter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.metrics.AlertFailed()
			h.logger.Warn("transient alert failed", "id", n.ID, "panic", r)
		}
	}()
	h.alerter.PresentTransientAlert(n.Title, n.Message)
}
