// Package check sequences the probes of one run and turns their outcome
// into a plugin result.
package check

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/probe"
)

type Status int

const (
	OK Status = iota
	Warning
	Critical
	Unknown
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Result is what one run reports. Checks holds the prober outcomes in the
// order they ran.
type Result struct {
	Status  Status
	Message string
	Checks  []probe.CheckResult
}

// ExitCode maps the status to the plugin exit code convention.
func (r Result) ExitCode() int { return int(r.Status) }

// Line is the single line written to stderr for a non-OK result, empty for OK.
func (r Result) Line() string {
	switch r.Status {
	case OK:
		return ""
	case Critical:
		return "FATAL: " + r.Message
	default:
		return r.Status.String() + ": " + r.Message
	}
}

func (r Result) LatencyMS() float64 {
	var total float64
	for _, c := range r.Checks {
		total += c.LatencyMS
	}
	return total
}

const AuthFailed = "HTTP Auth"

// Driver runs the auth probe and, if it passes, the collection probe.
type Driver struct {
	Auth       probe.Checker
	Collection probe.Checker
	// WarnMessage reported when the collection probe fails.
	WarnMessage string
	Logger      *zap.Logger
}

// NewDriver returns the driver for a CalDAV or CardDAV server.
func NewDriver(kind config.Kind, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{Auth: probe.NewAuthChecker(logger), Logger: logger}
	switch kind {
	case config.KindCalDAV, "":
		d.Collection = probe.NewCalendarChecker(logger)
		d.WarnMessage = "PROPFIND to user calendars failed"
	case config.KindCardDAV:
		d.Collection = probe.NewAddressBookChecker(logger)
		d.WarnMessage = "PROPFIND to user addressbooks failed"
	default:
		return nil, fmt.Errorf("unknown check kind %q", kind)
	}
	return d, nil
}

func (d *Driver) Run(ctx context.Context, cfg config.Probe) Result {
	var res Result

	auth := d.Auth.Check(ctx, cfg)
	res.Checks = append(res.Checks, auth)
	if !auth.Success {
		res.Status, res.Message = Critical, AuthFailed
		d.done(res)
		return res
	}

	coll := d.Collection.Check(ctx, cfg)
	res.Checks = append(res.Checks, coll)
	if !coll.Success {
		res.Status, res.Message = Warning, d.WarnMessage
		d.done(res)
		return res
	}

	res.Status = OK
	d.done(res)
	return res
}

func (d *Driver) done(res Result) {
	if d.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Stringer("status", res.Status),
		zap.String("message", res.Message),
		zap.Float64("latency_ms", res.LatencyMS()),
	}
	for _, c := range res.Checks {
		fields = append(fields, zap.Bool(c.Name, c.Success))
	}
	d.Logger.Debug("check_done", fields...)
}

// Suite builds a driver per kind on demand.
type Suite struct {
	Logger *zap.Logger
}

func (s Suite) Run(ctx context.Context, kind config.Kind, cfg config.Probe) Result {
	d, err := NewDriver(kind, s.Logger)
	if err != nil {
		return Result{Status: Unknown, Message: err.Error()}
	}
	return d.Run(ctx, cfg)
}
