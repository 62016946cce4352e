package scheduler

import (
	"context"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/notify"
	"github.com/hamed0406/davprobe/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

type Alerter struct {
	results  repo.ResultStore
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	clk      clock.Clock
	log      *zap.Logger
}

func NewAlerter(
	results repo.ResultStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
	clk clock.Clock,
	log *zap.Logger,
) *Alerter {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Alerter{
		results:  results,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		clk:      clk,
		log:      log,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.logScan(a.scanOnce(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.logScan(a.scanOnce(ctx))
		}
	}
}

func (a *Alerter) logScan(err error) {
	if err != nil {
		a.log.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	rows, err := a.results.Latest(ctx)
	if err != nil {
		return err
	}

	now := a.clk.Now()

	for _, row := range rows {
		r := row.Result
		rec, err := a.alertDB.Get(ctx, r.TargetID)
		if err != nil {
			return err
		}

		// Has the status changed compared to what we last recorded?
		stateChanged := rec == nil || rec.LastStatus != r.Status

		// Cooldown only matters for problem alerts (suppresses flapping).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		problemAlert := stateChanged && !r.OK() && cooled
		// a first sighting that is already OK is not a recovery
		recoveryAlert := stateChanged && r.OK() && rec != nil && a.cfg.AlertOnRecovery

		if problemAlert || recoveryAlert {
			al := notify.Alert{Target: row.Target, Result: r}
			if rec != nil {
				al.Previous = rec.LastStatus
			}
			if err := a.notifier.Notify(ctx, al); err != nil {
				a.log.Warn("alert_send_error", zap.String("target", string(r.TargetID)), zap.Error(err))
			}
			if err := a.alertDB.Set(ctx, r.TargetID, r.Status, now); err != nil {
				return err
			}
			continue
		}

		// If the status changed but we did not send (within cooldown or
		// recovery alerts disabled), still record the new status.
		if stateChanged {
			if err := a.alertDB.Set(ctx, r.TargetID, r.Status, time.Time{}); err != nil {
				return err
			}
		}
	}

	return nil
}
