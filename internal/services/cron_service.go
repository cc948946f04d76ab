package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	expirySvc     *ReservationExpiryService
	sweepSchedule string
	logger        *logrus.Logger
}

// NewCronService creates a new CronService. The sweep schedule uses
// six-field cron syntax with seconds precision.
func NewCronService(expirySvc *ReservationExpiryService, sweepSchedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:          cron.New(cron.WithSeconds()),
		expirySvc:     expirySvc,
		sweepSchedule: sweepSchedule,
		logger:        logger,
	}
}

// Start schedules and starts all background jobs
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(s.sweepSchedule, s.sweepJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reservation sweep: %w", err)
	}
	s.logger.WithField("schedule", s.sweepSchedule).Info("Scheduled reservation expiry sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) sweepJob() {
	startTime := time.Now()

	result, err := s.expirySvc.Sweep()
	if err != nil {
		s.logger.WithError(err).Error("Reservation sweep failed")
		return
	}

	if result.Expired > 0 || result.Released > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":  result.Expired,
			"released": result.Released,
			"duration": time.Since(startTime).String(),
		}).Info("Reservation sweep completed")
	}
}

// RunSweepNow triggers the sweep immediately, outside the schedule
func (s *CronService) RunSweepNow() (*SweepResult, error) {
	return s.expirySvc.Sweep()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
