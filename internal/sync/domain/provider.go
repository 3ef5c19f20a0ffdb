package domain

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is invoked when a provider client silently refreshes the
// access token, so the new token can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// Credentials carries the caller's provider tokens through a sync run.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	OnRefresh    TokenUpdateFunc
}

// FetchResult is one provider fetch: successfully normalized records plus
// the page- and record-scoped failures absorbed along the way. RecordErrors
// never abort a run; they are tallied into its counters.
type MessageFetchResult struct {
	Messages     []NormalizedMessage
	RecordErrors []error
}

type EventFetchResult struct {
	Events       []NormalizedEvent
	RecordErrors []error
}

// MessageProvider lists and normalizes email messages inside a window.
// A non-nil error is run-fatal (credential failure); partial failures are
// reported through the result instead.
type MessageProvider interface {
	Name() string
	FetchMessages(ctx context.Context, creds Credentials, window Window, pageSize int64) (*MessageFetchResult, error)
}

// EventProvider lists and normalizes calendar events inside a window.
type EventProvider interface {
	Name() string
	FetchEvents(ctx context.Context, creds Credentials, window Window, pageSize int64) (*EventFetchResult, error)
}
