// Package notify delivers status change alerts for watched DAV targets.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/domain"
)

// Alert describes a target whose check status changed.
type Alert struct {
	Target   domain.Target
	Result   domain.CheckResult
	Previous string // last alerted status, empty on first sighting
}

func (a Alert) Recovered() bool { return a.Result.OK() && a.Previous != "" }

func (a Alert) Title() string {
	if a.Recovered() {
		return fmt.Sprintf("DAV RECOVERED: %s", a.Result.TargetID)
	}
	return fmt.Sprintf("DAV %s: %s", a.Result.Status, a.Result.TargetID)
}

func (a Alert) Text() string {
	return fmt.Sprintf(
		"Server: %s\nUser: %s\nKind: %s\nStatus: %s\nMessage: %s\nLatency: %.0f ms\nChecked: %s",
		a.Target.Server, a.Target.User, a.Target.Kind, a.Result.Status, a.Result.Message,
		a.Result.LatencyMS, a.Result.CheckedAt.Format(time.RFC3339),
	)
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi sends to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, a))
	}
	return err
}

// Log writes alerts to the process log.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(ctx context.Context, a Alert) error {
	fields := []zap.Field{
		zap.String("target", string(a.Result.TargetID)),
		zap.String("status", a.Result.Status),
		zap.String("previous", a.Previous),
		zap.String("message", a.Result.Message),
	}
	if a.Result.OK() {
		l.Logger.Info("alert_recovered", fields...)
		return nil
	}
	l.Logger.Warn("alert", fields...)
	return nil
}
