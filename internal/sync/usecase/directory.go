package usecase

import (
	"sort"
	"strings"

	crmdomain "traction-backend/internal/crm/domain"

	"github.com/sirupsen/logrus"
)

// Directory is the per-run lookup index from lower-cased email address to
// contact. It also keeps a deterministic contact ordering (name, then id)
// so name-match tie-breaking never depends on map iteration order.
type Directory struct {
	byEmail  map[string]*crmdomain.Contact
	contacts []*crmdomain.Contact
}

// BuildDirectory indexes every contact's primary email and aliases. Contacts
// without a single usable email are logged and skipped, never fatal.
func BuildDirectory(contacts []crmdomain.Contact, logger *logrus.Logger) *Directory {
	sorted := make([]crmdomain.Contact, len(contacts))
	copy(sorted, contacts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	dir := &Directory{
		byEmail:  make(map[string]*crmdomain.Contact),
		contacts: make([]*crmdomain.Contact, 0, len(sorted)),
	}

	for i := range sorted {
		contact := &sorted[i]
		emails := contact.Emails()
		if len(emails) == 0 {
			if logger != nil {
				logger.WithField("contact_id", contact.ID).Warn("skipping contact with no usable email")
			}
			continue
		}
		dir.contacts = append(dir.contacts, contact)
		for _, email := range emails {
			key := normalizeEmail(email)
			if key == "" {
				continue
			}
			if _, taken := dir.byEmail[key]; !taken {
				dir.byEmail[key] = contact
			}
		}
	}

	return dir
}

// LookupEmail returns the contact owning the address, or nil.
func (d *Directory) LookupEmail(email string) *crmdomain.Contact {
	key := normalizeEmail(email)
	if key == "" {
		return nil
	}
	return d.byEmail[key]
}

// Contacts returns the indexed contacts in stable iteration order.
func (d *Directory) Contacts() []*crmdomain.Contact {
	return d.contacts
}

func (d *Directory) Len() int {
	return len(d.contacts)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
