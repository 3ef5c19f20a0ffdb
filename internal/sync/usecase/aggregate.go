package usecase

import "time"

// matchedRecord is the slice of a record the aggregation stage cares about.
type matchedRecord struct {
	ContactID string
	AccountID string
	Timestamp time.Time
}

// touchCandidates holds the maximum record timestamp per contact and per
// account, the candidate new last-touch values for the persist stage.
type touchCandidates struct {
	Contacts map[string]time.Time
	Accounts map[string]time.Time
}

func aggregateLastTouch(records []matchedRecord) touchCandidates {
	candidates := touchCandidates{
		Contacts: make(map[string]time.Time),
		Accounts: make(map[string]time.Time),
	}
	for _, record := range records {
		if record.Timestamp.IsZero() {
			continue
		}
		if record.ContactID != "" {
			if current, ok := candidates.Contacts[record.ContactID]; !ok || record.Timestamp.After(current) {
				candidates.Contacts[record.ContactID] = record.Timestamp
			}
		}
		if record.AccountID != "" {
			if current, ok := candidates.Accounts[record.AccountID]; !ok || record.Timestamp.After(current) {
				candidates.Accounts[record.AccountID] = record.Timestamp
			}
		}
	}
	return candidates
}
