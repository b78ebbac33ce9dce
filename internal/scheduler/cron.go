package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// cronLogger routes robfig/cron logs to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// RegisterAll registers the signal tick and, when analysisCron is set, the
// market analysis tick. A tick still running when the next one fires is
// skipped.
func (s *Scheduler) RegisterAll(tickCron, analysisCron string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	s.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := s.Cron.AddFunc(tickCron, s.tick); err != nil {
		return fmt.Errorf("register signal tick: %w", err)
	}
	if analysisCron != "" {
		if _, err := s.Cron.AddFunc(analysisCron, s.analysisTick); err != nil {
			return fmt.Errorf("register analysis tick: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) tick() {
	rep := s.OnTick(s.Ctx, s.Clock.Now())
	if err := rep.Err(); err != nil {
		log.Warn().Err(err).Msg("signal tick finished with errors, will retry next tick")
	}
}

func (s *Scheduler) analysisTick() {
	rep := s.OnAnalysisTick(s.Ctx, s.Clock.Now())
	if err := rep.Err(); err != nil {
		log.Warn().Err(err).Msg("analysis tick finished with errors")
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes one guarded tick immediately, for RUN_ON_START.
func (s *Scheduler) RunNow() {
	s.tick()
}
