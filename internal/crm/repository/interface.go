package repository

import (
	"time"

	crmdomain "traction-backend/internal/crm/domain"
)

// ContactRepository exposes the read side of the contact store plus the one
// write the sync engine is allowed: the monotonic last-touch update.
type ContactRepository interface {
	// ListWithAliases returns every contact in a stable order (name, then id)
	// so directory iteration is deterministic across runs.
	ListWithAliases() ([]crmdomain.Contact, error)
	FindByID(id string) (*crmdomain.Contact, error)
	// TouchLastContacted writes the candidate timestamp only if it is newer
	// than the stored value. Returns whether a row was updated.
	TouchLastContacted(id string, at time.Time) (bool, error)
}

// AccountRepository mirrors ContactRepository for accounts.
type AccountRepository interface {
	List() ([]crmdomain.Account, error)
	FindByID(id string) (*crmdomain.Account, error)
	TouchLastContacted(id string, at time.Time) (bool, error)
}
