package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/service"
)

// Maintenance schedules.
const (
	sessionCleanupSpec = "@every 1h"
	uploadSweepSpec    = "@every 15m"
)

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	cancel context.CancelFunc
	// startup tracks the initial run of every job.
	startup sync.WaitGroup
}

// maintenanceJob is one scheduled task. run observes ctx, which is
// cancelled on shutdown.
type maintenanceJob struct {
	name string
	spec string
	run  func(ctx context.Context)
}

// Shutdown implements do.Shutdownable. It waits for running jobs to finish,
// including the startup run.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	<-s.cron.Stop().Done()
	s.startup.Wait()
	return nil
}

// newScheduler registers jobs, runs each once in the background through the
// same skip-if-running chain the schedule uses, and starts the cron loop.
func newScheduler(jobs []maintenanceJob) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cancel: cancel,
	}

	ids := make([]cron.EntryID, 0, len(jobs))
	for _, job := range jobs {
		run := job.run
		id, err := s.cron.AddFunc(job.spec, func() { run(ctx) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("schedule %s: %w", job.name, err)
		}
		ids = append(ids, id)
	}

	// Orphans from a crash are swept once at startup.
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			s.cron.Entry(id).WrappedJob.Run()
		}
	}()

	s.cron.Start()
	return s, nil
}

// ProvideScheduler registers the maintenance jobs and starts the cron loop.
func ProvideScheduler(i do.Injector) (*Scheduler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	journalHandle := do.MustInvoke[*JournalHandle](i)
	bucket := do.MustInvoke[*objectstore.Bucket](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	purgeSessions := func(ctx context.Context) {
		expired, resets, err := sessions.PurgeExpired(ctx)
		if err != nil {
			log.Warn("Session cleanup failed", "error", err)
			return
		}
		if expired > 0 || resets > 0 {
			log.Info("Session cleanup completed", "sessions", expired, "reset_tokens", resets)
		}
	}

	sweepUploads := func(ctx context.Context) {
		cleared, err := journalHandle.Sweep(ctx, bucket, cfg.Uploads.OrphanGrace)
		if err != nil {
			log.Warn("Upload sweep failed", "error", err)
		}
		if cleared > 0 {
			m.ObjectsCompensated("sweep", cleared)
		}
	}

	s, err := newScheduler([]maintenanceJob{
		{name: "session cleanup", spec: sessionCleanupSpec, run: purgeSessions},
		{name: "upload sweep", spec: uploadSweepSpec, run: sweepUploads},
	})
	if err != nil {
		return nil, err
	}

	log.Info("Maintenance scheduler started",
		"session_cleanup", sessionCleanupSpec,
		"upload_sweep", uploadSweepSpec,
		"orphan_grace", cfg.Uploads.OrphanGrace,
	)

	return s, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from the store in
// the background. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	listings := do.MustInvoke[*service.ListingService](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		n, err := listings.ReindexIfEmpty(context.Background())
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("Initial search reindex completed", "documents", n)
		}
	}()
}
