package repository

import (
	"errors"
	"time"

	crmdomain "traction-backend/internal/crm/domain"

	"gorm.io/gorm"
)

// accountRepository implements AccountRepository on gorm.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) List() ([]crmdomain.Account, error) {
	var accounts []crmdomain.Account
	if err := r.db.Order("name asc, id asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) FindByID(id string) (*crmdomain.Account, error) {
	var account crmdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) TouchLastContacted(id string, at time.Time) (bool, error) {
	res := r.db.Model(&crmdomain.Account{}).
		Where("id = ? AND (last_contacted_at IS NULL OR last_contacted_at < ?)", id, at).
		Update("last_contacted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
