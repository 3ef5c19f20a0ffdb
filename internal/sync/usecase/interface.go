package usecase

import (
	"context"

	syncdomain "traction-backend/internal/sync/domain"
	syncdto "traction-backend/internal/sync/dto"
)

// SyncUsecase drives one bounded sync run per call: fetch, match, aggregate,
// persist, with partial failures absorbed into the returned statistics.
type SyncUsecase interface {
	RunSync(ctx context.Context, userID string) (*syncdto.SyncRunResponse, error)
	ListRuns(userID string, limit int) ([]syncdomain.SyncRun, error)
	ListActivitiesByContact(contactID string, limit int) ([]syncdomain.Activity, error)
}
