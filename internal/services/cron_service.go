package services

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	expiration *ExpirationService
	sweepSpec  string
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(expiration *ExpirationService, sweepSpec string, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:       c,
		expiration: expiration,
		sweepSpec:  sweepSpec,
		logger:     logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc(s.sweepSpec, s.expirationSweepJob)
	if err != nil {
		return fmt.Errorf("failed to schedule expiration sweep: %w", err)
	}
	s.logger.Infof("Scheduled: route expiration sweep (%s)", s.sweepSpec)

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops all cron jobs and waits for running ones
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// expirationSweepJob closes in-progress routes past their grace window
func (s *CronService) expirationSweepJob() {
	result, err := s.expiration.Run()
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Expiration sweep failed")
		return
	}

	if result.Completed > 0 || result.Incomplete > 0 {
		s.logger.WithFields(logrus.Fields{
			"checked":    result.Checked,
			"completed":  result.Completed,
			"incomplete": result.Incomplete,
		}).Info("[CRON] Expiration sweep closed routes")
	}
}

// RunSweepNow runs the expiration sweep immediately (admin endpoint)
func (s *CronService) RunSweepNow() (*SweepResult, error) {
	return s.expiration.Run()
}
