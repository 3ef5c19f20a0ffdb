package repository

import (
	"time"

	syncdomain "traction-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncRunRepository implements SyncRunRepository on gorm.
type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository creates a new instance of syncRunRepository
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{
		db: db,
	}
}

func (r *syncRunRepository) Create(run *syncdomain.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	return r.db.Create(run).Error
}

func (r *syncRunRepository) Update(run *syncdomain.SyncRun) error {
	run.UpdatedAt = time.Now()
	return r.db.Save(run).Error
}

func (r *syncRunRepository) ListByUser(userID string, limit int) ([]syncdomain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []syncdomain.SyncRun
	err := r.db.Where("user_id = ?", userID).
		Order("started_at desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
