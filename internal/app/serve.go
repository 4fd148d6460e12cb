package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/signalfeed/internal/content"
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// Schedule registers the periodic jobs on a new cron. Overlapping runs of a
// job are skipped and panics are recovered.
func (a *App) Schedule(ctx context.Context) (*cron.Cron, error) {
	cl := cronLogger{log: a.log.With("component", "cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"ingest", a.cfg.IngestSchedule, func() {
			if _, err := a.RunIngest(ctx); err != nil {
				a.log.Error("scheduled ingestion failed", "error", err)
			}
		}},
		{"rotate-articles", a.cfg.RotateSchedule, a.rotateJob(ctx, content.KindArticle)},
		{"rotate-metrics", a.cfg.MetricRotateSchedule, a.rotateJob(ctx, content.KindMetric)},
		{"archive", a.cfg.ArchiveSchedule, func() {
			if _, err := a.ArchiveExpired(ctx); err != nil {
				a.log.Error("scheduled archive failed", "error", err)
			}
		}},
	}
	for _, j := range jobs {
		if j.spec == "" || j.spec == "off" {
			a.log.Info("job disabled", "job", j.name)
			continue
		}
		if _, err := c.AddFunc(j.spec, j.run); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		a.log.Info("job scheduled", "job", j.name, "spec", j.spec)
	}
	return c, nil
}

func (a *App) rotateJob(ctx context.Context, kind content.Kind) func() {
	return func() {
		res, err := a.Rotate(ctx, kind, 0)
		if err != nil {
			a.log.Error("scheduled rotation failed", "kind", kind, "error", err)
			return
		}
		a.log.Info("rotation complete", "kind", kind, "published", len(res.Published), "archived", res.Archived)
	}
}

// Serve runs the scheduler and the monitoring server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	c, err := a.Schedule(ctx)
	if err != nil {
		return err
	}
	c.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.MonitoringPort),
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting monitoring server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		a.log.Warn("monitoring server shutdown failed", "error", serr)
	}
	// Wait for running jobs.
	<-c.Stop().Done()
	return err
}
