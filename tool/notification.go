package tool

import (
	"context"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// Notification emits an application-level message through the engine's
// delivery boundary. Unlike escalation delivery this runs inline so the
// task's retry budget covers delivery failures.
//
// Input:
//
//	message (required) the message text
//	channel optional routing hint for the deliverer
type Notification struct {
	notifier core.Notifier
}

// NewNotification constructs the notification tool on top of a deliverer.
func NewNotification(notifier core.Notifier) *Notification {
	return &Notification{notifier: notifier}
}

// Kind returns core.ToolKindNotification.
func (t *Notification) Kind() core.ToolKind { return core.ToolKindNotification }

// Description returns the tool summary.
func (t *Notification) Description() string {
	return "Deliver a message through the notification boundary"
}

// Execute delivers the message.
func (t *Notification) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	message, err := stringInput(t.Kind(), input, "message")
	if err != nil {
		return nil, err
	}
	channel, _ := input["channel"].(string)

	n := core.Notification{
		Kind:      core.NotificationKindMessage,
		PlanID:    execCtx.PlanID(),
		Message:   message,
		Channel:   channel,
		Timestamp: time.Now().UTC(),
	}
	if err := t.notifier.Deliver(ctx, n); err != nil {
		return nil, err
	}
	return map[string]any{"delivered": true, "channel": channel}, nil
}
