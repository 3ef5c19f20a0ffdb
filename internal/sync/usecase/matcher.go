package usecase

import (
	"strings"

	crmdomain "traction-backend/internal/crm/domain"
	syncdomain "traction-backend/internal/sync/domain"
)

// MatchMessage associates a normalized message with a contact. Two ordered
// strategies, first success wins: exact address match against the directory
// (from, then every to address), then case-insensitive name substring over
// from-name, to-field and subject. Total: always returns a result.
func MatchMessage(dir *Directory, msg syncdomain.NormalizedMessage) syncdomain.MatchResult {
	result := syncdomain.MatchResult{RecordID: msg.ID, Strategy: syncdomain.MatchNone}

	if contact := matchByAlias(dir, msg.FromEmail, msg.To); contact != nil {
		fillMatch(&result, contact, syncdomain.MatchAlias)
		return result
	}
	if contact := matchByName(dir, msg.FromName, strings.Join(msg.To, ", "), msg.Subject); contact != nil {
		fillMatch(&result, contact, syncdomain.MatchName)
	}
	return result
}

// MatchEvent treats attendees as the to-field and the title as the subject.
func MatchEvent(dir *Directory, ev syncdomain.NormalizedEvent) syncdomain.MatchResult {
	result := syncdomain.MatchResult{RecordID: ev.ID, Strategy: syncdomain.MatchNone}

	if contact := matchByAlias(dir, "", ev.Attendees); contact != nil {
		fillMatch(&result, contact, syncdomain.MatchAlias)
		return result
	}
	if contact := matchByName(dir, "", strings.Join(ev.Attendees, ", "), ev.Title); contact != nil {
		fillMatch(&result, contact, syncdomain.MatchName)
	}
	return result
}

func fillMatch(result *syncdomain.MatchResult, contact *crmdomain.Contact, strategy string) {
	result.ContactID = contact.ID
	result.AccountID = contact.AccountID
	result.Strategy = strategy
}

func matchByAlias(dir *Directory, from string, to []string) *crmdomain.Contact {
	if contact := dir.LookupEmail(from); contact != nil {
		return contact
	}
	for _, addr := range to {
		if contact := dir.LookupEmail(addr); contact != nil {
			return contact
		}
	}
	return nil
}

// matchByName scans fields in priority order; within a field, contacts are
// scanned in the directory's stable order so ties break deterministically.
func matchByName(dir *Directory, fields ...string) *crmdomain.Contact {
	for _, field := range fields {
		haystack := strings.ToLower(strings.TrimSpace(field))
		if haystack == "" {
			continue
		}
		for _, contact := range dir.Contacts() {
			fullName := strings.ToLower(strings.TrimSpace(contact.Name))
			if fullName != "" && strings.Contains(haystack, fullName) {
				return contact
			}
			firstName := strings.ToLower(strings.TrimSpace(contact.FirstName()))
			if firstName != "" && strings.Contains(haystack, firstName) {
				return contact
			}
		}
	}
	return nil
}
