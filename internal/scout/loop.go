package scout

import (
	"context"
	"os"

	"github.com/robfig/cron"
)

// ciEnvVar marks runs driven by an external scheduler. When set to "true"
// the nightly loop degrades to a single pass so the CI job terminates.
const ciEnvVar = "GITHUB_ACTIONS"

// RunNightlyLoop runs nightly scans on the configured cron schedule until
// the context is cancelled. Under CI the schedule is ignored and exactly
// one scan runs.
func (s *Scout) RunNightlyLoop(ctx context.Context) error {
	if os.Getenv(ciEnvVar) == "true" {
		s.logger.Info().Msg("CI environment detected, running a single nightly scan")
		return s.RunNightly(ctx)
	}

	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "@midnight"
	}

	c := cron.New()
	err := c.AddFunc(schedule, func() {
		if err := s.RunNightly(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled nightly scan failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("schedule", schedule).Msg("nightly scan scheduled")
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	s.logger.Info().Msg("nightly loop stopped")
	return ctx.Err()
}
