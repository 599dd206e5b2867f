// Package attendance delivers "student present" events to the attendance system.
// Nothing in rollcall writes attendance records itself.
package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Event field values.
const (
	StatusPresent = "present"
	MethodFace    = "face"
)

// Event marks one student's attendance.
type Event struct {
	StudentID string    `json:"student_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
}

// PresentByFace builds the event emitted for a face match.
func PresentByFace(studentID string, at time.Time) Event {
	return Event{StudentID: studentID, Status: StatusPresent, Timestamp: at.UTC(), Method: MethodFace}
}

// Notifier receives attendance events. Implementations do not retry; retries
// belong to the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier discards events.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, Event) error { return nil }

// LogNotifier writes events to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs each event at info level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs ev.
func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	n.logger.Info("attendance",
		zap.String("student_id", ev.StudentID),
		zap.String("status", ev.Status),
		zap.String("method", ev.Method),
		zap.Time("timestamp", ev.Timestamp))
	return nil
}

// MultiNotifier fans an event out to several notifiers. Every notifier is
// tried; their errors are joined.
type MultiNotifier []Notifier

// Notify sends ev to each notifier in order.
func (m MultiNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
