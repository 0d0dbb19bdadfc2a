package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cyberwise/portal/internal/attachment"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/metrics"
	"cyberwise/portal/internal/repository"
)

const sweepTimeout = 5 * time.Minute

// Scheduler runs periodic housekeeping for the API process.
type Scheduler struct {
	cron         *cron.Cron
	applications repository.ApplicationRepository
	files        *attachment.Store
	metrics      *metrics.Collector
	cfg          config.UploadsConfig
	log          zerolog.Logger
}

func NewScheduler(
	applications repository.ApplicationRepository,
	files *attachment.Store,
	collector *metrics.Collector,
	cfg config.UploadsConfig,
	log zerolog.Logger,
) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{
		cron:         c,
		applications: applications,
		files:        files,
		metrics:      collector,
		cfg:          cfg,
		log:          log,
	}
}

func (s *Scheduler) Start() error {
	if s.files == nil || s.cfg.SweepSchedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("schedule orphan sweep %q: %w", s.cfg.SweepSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.SweepOrphans(ctx); err != nil {
		s.log.Error().Err(err).Msg("orphan upload sweep failed")
	}
}

// SweepOrphans removes uploads that no application references once they are
// older than the configured age.
func (s *Scheduler) SweepOrphans(ctx context.Context) (int, error) {
	urls, err := s.applications.ListCVURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cv urls: %w", err)
	}

	keep := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if name, ok := attachment.NameFromURL(url); ok {
			keep[name] = struct{}{}
		}
	}

	removed, err := s.files.SweepOrphans(ctx, keep, s.cfg.OrphanAge)
	s.metrics.OrphansRemoved(len(removed))
	if len(removed) > 0 {
		s.log.Info().Int("removed", len(removed)).Strs("files", removed).Msg("orphan uploads removed")
	}
	return len(removed), err
}
