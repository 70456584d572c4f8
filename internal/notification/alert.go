package notification

import "log/slog"

// LogAlerter presents transient alerts as log lines.
type LogAlerter struct {
	logger *slog.Logger
}

// NewLogAlerter creates a LogAlerter.
func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAlerter{logger: logger}
}

// PresentTransientAlert logs the alert at info level.
func (a *LogAlerter) PresentTransientAlert(title, message string) {
	a.logger.Info("notification", "title", title, "message", message)
}
