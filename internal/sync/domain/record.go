package domain

import "time"

// Match strategies, strongest first. A record matched by alias is never
// downgraded to a name match on a later pass.
const (
	MatchAlias = "alias"
	MatchName  = "name"
	MatchNone  = "none"
)

// NormalizedMessage is an email message normalized from a provider payload.
// It lives only for the duration of one sync run.
type NormalizedMessage struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Subject   string    `json:"subject"`
	FromName  string    `json:"from_name"`
	FromEmail string    `json:"from_email"`
	To        []string  `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Snippet   string    `json:"snippet"`
	Labels    []string  `json:"labels"`
}

// NormalizedEvent is a calendar event normalized from a provider payload.
type NormalizedEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

// MatchResult is the outcome of running the matcher over one record.
// It is folded into the stored Activity, never persisted on its own.
type MatchResult struct {
	RecordID  string `json:"record_id"`
	ContactID string `json:"contact_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Strategy  string `json:"strategy"`
}

// Activity kinds.
const (
	KindMessage = "message"
	KindEvent   = "event"
)

// Activity is the persisted form of a normalized, matched provider record.
// Identity is the (provider, provider_record_id) pair; re-ingesting the same
// record updates mutable fields in place instead of creating a new row.
type Activity struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Provider         string    `json:"provider" gorm:"uniqueIndex:idx_provider_record;not null"`
	ProviderRecordID string    `json:"provider_record_id" gorm:"uniqueIndex:idx_provider_record;not null"`
	Kind             string    `json:"kind" gorm:"not null"`
	Title            string    `json:"title"`
	FromName         string    `json:"from_name"`
	FromEmail        string    `json:"from_email"`
	Participants     []string  `json:"participants" gorm:"serializer:json"`
	Snippet          string    `json:"snippet"`
	Labels           []string  `json:"labels" gorm:"serializer:json"`
	OccurredAt       time.Time `json:"occurred_at" gorm:"index"`
	ContactID        string    `json:"contact_id" gorm:"index"`
	AccountID        string    `json:"account_id" gorm:"index"`
	MatchStrategy    string    `json:"match_strategy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MessageActivity builds the persisted form of a matched message.
func MessageActivity(provider string, msg NormalizedMessage, match MatchResult) Activity {
	return Activity{
		Provider:         provider,
		ProviderRecordID: msg.ID,
		Kind:             KindMessage,
		Title:            msg.Subject,
		FromName:         msg.FromName,
		FromEmail:        msg.FromEmail,
		Participants:     msg.To,
		Snippet:          msg.Snippet,
		Labels:           msg.Labels,
		OccurredAt:       msg.Timestamp,
		ContactID:        match.ContactID,
		AccountID:        match.AccountID,
		MatchStrategy:    match.Strategy,
	}
}

// EventActivity builds the persisted form of a matched calendar event.
func EventActivity(provider string, ev NormalizedEvent, match MatchResult) Activity {
	return Activity{
		Provider:         provider,
		ProviderRecordID: ev.ID,
		Kind:             KindEvent,
		Title:            ev.Title,
		Participants:     ev.Attendees,
		Snippet:          ev.MeetingLink,
		OccurredAt:       ev.Start,
		ContactID:        match.ContactID,
		AccountID:        match.AccountID,
		MatchStrategy:    match.Strategy,
	}
}
