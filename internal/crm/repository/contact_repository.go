package repository

import (
	"errors"
	"time"

	crmdomain "traction-backend/internal/crm/domain"

	"gorm.io/gorm"
)

// contactRepository implements ContactRepository on gorm.
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new instance of contactRepository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{
		db: db,
	}
}

func (r *contactRepository) ListWithAliases() ([]crmdomain.Contact, error) {
	var contacts []crmdomain.Contact
	if err := r.db.Order("name asc, id asc").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) FindByID(id string) (*crmdomain.Contact, error) {
	var contact crmdomain.Contact
	err := r.db.Where("id = ?", id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// TouchLastContacted enforces monotonicity in the WHERE clause so two
// overlapping runs converge on the newest value without coordination.
func (r *contactRepository) TouchLastContacted(id string, at time.Time) (bool, error) {
	res := r.db.Model(&crmdomain.Contact{}).
		Where("id = ? AND (last_contacted_at IS NULL OR last_contacted_at < ?)", id, at).
		Update("last_contacted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
