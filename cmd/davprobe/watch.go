package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmhodges/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/davprobe/internal/check"
	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/domain"
	"github.com/hamed0406/davprobe/internal/httpapi"
	apimw "github.com/hamed0406/davprobe/internal/httpapi/middleware"
	"github.com/hamed0406/davprobe/internal/metrics"
	"github.com/hamed0406/davprobe/internal/notify"
	"github.com/hamed0406/davprobe/internal/repo/memory"
	"github.com/hamed0406/davprobe/internal/scheduler"
)

var (
	watchFile string
	watchAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch -c FILE",
	Short: "Re-run the checks for several servers and serve their status over HTTP",
	Long: `watch reads a YAML file listing DAV targets, runs the caldav or carddav
check sequence for each of them on an interval, alerts on status changes
and serves the latest results on /api/results and /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchFile == "" {
			return errors.New("watch: --config is required")
		}
		w, err := config.LoadWatch(watchFile, env)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			w.Addr = watchAddr
		}

		log, err := newLogger(logDir == "")
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, log, w)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchFile, "config", "c", env.WatchFile, "watch file (YAML)")
	watchCmd.Flags().StringVar(&watchAddr, "addr", env.WatchAddr, "HTTP listen address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, log *zap.Logger, w *config.Watch) error {
	store := memory.New(0)
	for _, t := range w.Targets {
		_ = store.Add(ctx, &domain.Target{
			ID:     domain.TargetID(t.Name),
			Kind:   string(t.Kind),
			Server: t.Server,
			User:   t.User,
			Dir:    t.Dir,
		})
	}

	m := metrics.New()
	rc := scheduler.NewRechecker(log, w.Targets, store, check.Suite{Logger: log},
		w.Interval, 0, w.Concurrency)
	rc.Observer = m

	notifiers := notify.Multi{notify.Log{Logger: log}}
	if s := notify.NewSlack(w.SlackWebhook); s != nil {
		notifiers = append(notifiers, s)
	}
	al := scheduler.NewAlerter(store, memory.NewAlerts(), notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: w.AlertOnRecovery,
		Cooldown:        w.Cooldown,
		PollInterval:    w.Interval / 2,
	}, clock.New(), log)

	api := httpapi.NewServer(log, store, store, rc, m.Handler())
	srv := &http.Server{
		Addr: w.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			Keys:        apimw.Keys{Public: env.PublicAPIKeys, Admin: env.AdminAPIKeys},
			PublicRPM:   120,
			PublicBurst: 60,
			AdminRPM:    10,
			AdminBurst:  5,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rc.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := al.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("watch_listen", zap.String("addr", w.Addr), zap.Int("targets", len(w.Targets)))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	log.Info("watch_stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
