package notification

import (
	"context"
	"log/slog"
	"time"
)

// Workflow event kinds.
const (
	KindRegistrationSubmitted = "registration_submitted"
	KindRegistrationApproved  = "registration_approved"
	KindRegistrationRejected  = "registration_rejected"
	KindContentReleased       = "content_released"
	KindPayrollRecorded       = "payroll_recorded"
)

// Message describes a notification payload.
type Message struct {
	Kind        string            `json:"kind"`
	Destination string            `json:"destination"`
	Body        string            `json:"body"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
		slog.Any("attributes", message.Attributes),
	)
	return nil
}

// Fanout sends every message to each notifier and returns the first error.
type Fanout []Notifier

// Send delivers to all notifiers even when one fails.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
