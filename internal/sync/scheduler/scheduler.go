package scheduler

import (
	"context"
	"errors"
	"time"

	authrepo "traction-backend/internal/auth/repository"
	syncdomain "traction-backend/internal/sync/domain"
	"traction-backend/internal/sync/usecase"

	"github.com/sirupsen/logrus"
)

// SyncScheduler triggers a sync run for every user with a stored provider
// credential on a fixed interval. A scheduled run racing a manual one is
// safe: persistence is idempotent and last-touch updates are monotonic.
type SyncScheduler struct {
	syncUsecase usecase.SyncUsecase
	userRepo    authrepo.UserRepository
	interval    time.Duration
	logger      *logrus.Logger
	stopChan    chan struct{}
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(syncUsecase usecase.SyncUsecase, userRepo authrepo.UserRepository, interval time.Duration, logger *logrus.Logger) *SyncScheduler {
	return &SyncScheduler{
		syncUsecase: syncUsecase,
		userRepo:    userRepo,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("sync scheduler disabled")
		return
	}

	s.logger.WithField("interval", s.interval.String()).Info("starting sync scheduler")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runAll()
			case <-s.stopChan:
				s.logger.Info("sync scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

func (s *SyncScheduler) runAll() {
	users, err := s.userRepo.ListWithProviderCredential()
	if err != nil {
		s.logger.WithError(err).Error("unable to list users for scheduled sync")
		return
	}

	for _, user := range users {
		result, err := s.syncUsecase.RunSync(context.Background(), user.ID)
		if err != nil {
			// A revoked credential is this user's problem, not the loop's.
			if errors.Is(err, syncdomain.ErrCredential) {
				s.logger.WithError(err).WithField("user_id", user.ID).Warn("skipping user with unusable credential")
				continue
			}
			s.logger.WithError(err).WithField("user_id", user.ID).Error("scheduled sync failed")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"run_id":    result.RunID,
			"fetched":   result.Fetched,
			"persisted": result.Persisted,
			"failed":    result.Failed,
		}).Info("scheduled sync completed")
	}
}
