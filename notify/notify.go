// Package notify provides delivery collaborators for the engine's
// escalation and completion records. Delivery is best-effort and
// fire-and-forget from the engine's perspective; implementations own any
// retry or queueing policy they need.
package notify

import (
	"context"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/logging"
)

// LogNotifier writes notifications to the configured logger. It is the
// default deliverer, suitable for development and as a fallback.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger defaults to the
// standard slog logger so notifications remain visible out of the box.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NewDefaultSlogLogger()
	}
	return &LogNotifier{logger: logger}
}

// Deliver logs the notification.
func (n *LogNotifier) Deliver(ctx context.Context, notification core.Notification) error {
	args := []any{
		"kind", string(notification.Kind),
		"plan_id", notification.PlanID,
		"completed", notification.Progress.Completed,
		"failed", notification.Progress.Failed,
		"total", notification.Progress.Total,
	}
	if notification.Message != "" {
		args = append(args, "message", notification.Message)
	}
	if esc := notification.Escalation; esc != nil {
		args = append(args, "task_id", esc.TaskID, "reason", esc.Reason)
		n.logger.Warn("notification.escalation", args...)
		return nil
	}
	n.logger.Info("notification", args...)
	return nil
}

var _ core.Notifier = (*LogNotifier)(nil)
