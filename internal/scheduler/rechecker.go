package scheduler

import (
	"context"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/davprobe/internal/check"
	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/domain"
	"github.com/hamed0406/davprobe/internal/repo"
)

// Runner runs one full check sequence; check.Suite is the production one.
type Runner interface {
	Run(ctx context.Context, kind config.Kind, p config.Probe) check.Result
}

// Observer receives every finished run, e.g. the Prometheus exporter.
type Observer interface {
	Observe(target string, res check.Result)
}

type Rechecker struct {
	Logger      *zap.Logger
	Targets     []config.Target
	Results     repo.ResultStore
	Runner      Runner
	Observer    Observer
	Interval    time.Duration
	Timeout     time.Duration // bounds a whole sequence for one target
	ProbeTO     time.Duration // default per-request timeout for targets without one
	Concurrency int
	Clock       clock.Clock
}

func NewRechecker(
	logger *zap.Logger,
	targets []config.Target,
	rs repo.ResultStore,
	runner Runner,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Rechecker {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Rechecker{
		Logger:      logger,
		Targets:     targets,
		Results:     rs,
		Runner:      runner,
		Interval:    interval,
		Timeout:     timeout,
		ProbeTO:     config.DefaultTimeout,
		Concurrency: concurrency,
		Clock:       clock.New(),
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("rechecker_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	// immediate pass
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce checks every target, at most Concurrency at a time.
func (r *Rechecker) runOnce(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(r.Concurrency)
	for _, tgt := range r.Targets {
		tgt := tgt
		g.Go(func() error {
			r.checkTarget(ctx, tgt)
			return nil
		})
	}
	_ = g.Wait()
}

// CheckNow runs the sequence for one target immediately and returns the
// recorded result.
func (r *Rechecker) CheckNow(ctx context.Context, id domain.TargetID) (*domain.CheckResult, error) {
	for _, t := range r.Targets {
		if domain.TargetID(t.Name) == id {
			return r.checkTarget(ctx, t), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *Rechecker) checkTarget(ctx context.Context, t config.Target) *domain.CheckResult {
	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out := r.Runner.Run(cctx, t.Kind, t.Probe(r.ProbeTO))
	if r.Observer != nil {
		r.Observer.Observe(t.Name, out)
	}

	msg := out.Message
	for _, c := range out.Checks {
		if !c.Success && c.Err != nil {
			msg += " (" + c.Err.Error() + ")"
		}
	}
	cr := &domain.CheckResult{
		TargetID:  domain.TargetID(t.Name),
		Status:    out.Status.String(),
		Message:   msg,
		LatencyMS: out.LatencyMS(),
		CheckedAt: r.now().UTC(),
	}
	if err := r.Results.Append(ctx, cr); err != nil {
		r.Logger.Warn("watch_append_error",
			zap.String("target", t.Name),
			zap.String("server", t.Server),
			zap.Error(err),
		)
	} else {
		r.Logger.Debug("watch_checked",
			zap.String("target", t.Name),
			zap.String("server", t.Server),
			zap.String("status", cr.Status),
			zap.Float64("latency_ms", cr.LatencyMS),
			zap.String("message", cr.Message),
		)
	}
	return cr
}

func (r *Rechecker) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}
