package repository

import (
	syncdomain "traction-backend/internal/sync/domain"
)

// ActivityRepository persists normalized, matched provider records.
type ActivityRepository interface {
	// Upsert inserts the activity or, when its (provider, provider_record_id)
	// key already exists, updates only the mutable fields. A duplicate-key
	// race with a concurrent run is absorbed as a successful no-op.
	Upsert(activity *syncdomain.Activity) error
	ListByContact(contactID string, limit int) ([]syncdomain.Activity, error)
	CountByProvider(provider string) (int64, error)
}

// SyncRunRepository records run lifecycles and their statistics.
type SyncRunRepository interface {
	Create(run *syncdomain.SyncRun) error
	Update(run *syncdomain.SyncRun) error
	ListByUser(userID string, limit int) ([]syncdomain.SyncRun, error)
}
