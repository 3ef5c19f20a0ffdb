package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	syncdomain "traction-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// strategyRank orders match strategies so an update can never replace a
// stronger match with a weaker one.
var strategyRank = map[string]int{
	syncdomain.MatchNone:  0,
	syncdomain.MatchName:  1,
	syncdomain.MatchAlias: 2,
}

// activityRepository implements ActivityRepository on gorm.
type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new instance of activityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{
		db: db,
	}
}

// Upsert is keyed by (provider, provider_record_id). Inserting behind a
// concurrent run's identical insert hits the unique index; that race is a
// no-op, not an error. Any other write failure propagates so the run can
// count it as a persist failure.
func (r *activityRepository) Upsert(activity *syncdomain.Activity) error {
	var existing syncdomain.Activity
	err := r.db.Where("provider = ? AND provider_record_id = ?", activity.Provider, activity.ProviderRecordID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if activity.ID == "" {
			activity.ID = uuid.New().String()
		}
		createErr := r.db.Create(activity).Error
		if createErr == nil {
			return nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// Lost the insert race to an overlapping run.
			return nil
		}
		return classifyStoreError(createErr)
	}
	if err != nil {
		return classifyStoreError(err)
	}

	selects := mutableColumns(existing.MatchStrategy, activity.MatchStrategy)
	activity.ID = existing.ID
	if err := r.db.Model(&syncdomain.Activity{ID: existing.ID}).Select(selects).Updates(activity).Error; err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// mutableColumns lists the fields an update may reassert. Row identity and
// anything outside the list survive the write, and match fields are only
// included when the incoming strategy is at least as strong as the stored
// one, so an alias match is never downgraded by a name-match pass.
func mutableColumns(existingStrategy, incomingStrategy string) []string {
	selects := []string{"snippet", "labels", "updated_at"}
	if strategyRank[incomingStrategy] >= strategyRank[existingStrategy] {
		selects = append(selects, "contact_id", "account_id", "match_strategy")
	}
	return selects
}

func (r *activityRepository) ListByContact(contactID string, limit int) ([]syncdomain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	var activities []syncdomain.Activity
	err := r.db.Where("contact_id = ?", contactID).
		Order("occurred_at desc").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepository) CountByProvider(provider string) (int64, error) {
	var count int64
	err := r.db.Model(&syncdomain.Activity{}).Where("provider = ?", provider).Count(&count).Error
	return count, err
}

// classifyStoreError separates "the store is down" from an ordinary bad
// write: the former aborts the run, the latter is a per-record failure.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gorm.ErrInvalidDB) {
		return fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err)
	}
	return err
}
