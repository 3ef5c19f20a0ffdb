package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	authdomain "traction-backend/internal/auth/domain"
	crmdomain "traction-backend/internal/crm/domain"
	syncdomain "traction-backend/internal/sync/domain"
	"traction-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeUserRepo struct {
	users map[string]*authdomain.User
}

func (f *fakeUserRepo) Create(user *authdomain.User) error { return nil }

func (f *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) { return nil, nil }

func (f *fakeUserRepo) ListWithProviderCredential() ([]authdomain.User, error) {
	var out []authdomain.User
	for _, u := range f.users {
		if u.HasProviderCredential() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateGoogleTokens(userID string, token *oauth2.Token) error { return nil }

type touchCall struct {
	id string
	at time.Time
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts []crmdomain.Contact
	touches  []touchCall
	touchErr error
}

func (f *fakeContactRepo) ListWithAliases() ([]crmdomain.Contact, error) {
	return f.contacts, nil
}

func (f *fakeContactRepo) FindByID(id string) (*crmdomain.Contact, error) {
	for i := range f.contacts {
		if f.contacts[i].ID == id {
			return &f.contacts[i], nil
		}
	}
	return nil, nil
}

func (f *fakeContactRepo) TouchLastContacted(id string, at time.Time) (bool, error) {
	if f.touchErr != nil {
		return false, f.touchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, touchCall{id: id, at: at})
	return true, nil
}

type fakeAccountRepo struct {
	mu      sync.Mutex
	touches []touchCall
}

func (f *fakeAccountRepo) List() ([]crmdomain.Account, error)            { return nil, nil }
func (f *fakeAccountRepo) FindByID(id string) (*crmdomain.Account, error) { return nil, nil }

func (f *fakeAccountRepo) TouchLastContacted(id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, touchCall{id: id, at: at})
	return true, nil
}

var fakeStrategyRank = map[string]int{
	syncdomain.MatchNone:  0,
	syncdomain.MatchName:  1,
	syncdomain.MatchAlias: 2,
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	rows      map[string]syncdomain.Activity
	upsertErr error // returned once per offending record id
	failOn    string
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{rows: make(map[string]syncdomain.Activity)}
}

func (f *fakeActivityRepo) Upsert(activity *syncdomain.Activity) error {
	if f.upsertErr != nil && (f.failOn == "" || f.failOn == activity.ProviderRecordID) {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := activity.Provider + "|" + activity.ProviderRecordID
	if existing, ok := f.rows[key]; ok {
		existing.Snippet = activity.Snippet
		existing.Labels = activity.Labels
		if fakeStrategyRank[activity.MatchStrategy] >= fakeStrategyRank[existing.MatchStrategy] {
			existing.ContactID = activity.ContactID
			existing.AccountID = activity.AccountID
			existing.MatchStrategy = activity.MatchStrategy
		}
		f.rows[key] = existing
		return nil
	}
	f.rows[key] = *activity
	return nil
}

func (f *fakeActivityRepo) ListByContact(contactID string, limit int) ([]syncdomain.Activity, error) {
	var out []syncdomain.Activity
	for _, a := range f.rows {
		if a.ContactID == contactID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) CountByProvider(provider string) (int64, error) {
	var n int64
	for _, a := range f.rows {
		if a.Provider == provider {
			n++
		}
	}
	return n, nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*syncdomain.SyncRun
}

func (f *fakeRunRepo) Create(run *syncdomain.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = fmt.Sprintf("run-%d", len(f.runs)+1)
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunRepo) Update(run *syncdomain.SyncRun) error { return nil }

func (f *fakeRunRepo) ListByUser(userID string, limit int) ([]syncdomain.SyncRun, error) {
	var out []syncdomain.SyncRun
	for _, r := range f.runs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeMessageProvider struct {
	name  string
	mu    sync.Mutex
	calls int
	fetch func(call int) (*syncdomain.MessageFetchResult, error)
}

func (f *fakeMessageProvider) Name() string { return f.name }

func (f *fakeMessageProvider) FetchMessages(ctx context.Context, creds syncdomain.Credentials, window syncdomain.Window, pageSize int64) (*syncdomain.MessageFetchResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fetch(call)
}

type fakeEventProvider struct {
	name  string
	fetch func() (*syncdomain.EventFetchResult, error)
}

func (f *fakeEventProvider) Name() string { return f.name }

func (f *fakeEventProvider) FetchEvents(ctx context.Context, creds syncdomain.Credentials, window syncdomain.Window, pageSize int64) (*syncdomain.EventFetchResult, error) {
	return f.fetch()
}

type syncFixture struct {
	usecase      *syncUsecase
	activityRepo *fakeActivityRepo
	runRepo      *fakeRunRepo
	contactRepo  *fakeContactRepo
	accountRepo  *fakeAccountRepo
}

func testConfig() *config.Config {
	return &config.Config{
		SyncWindowDays:   30,
		SyncPageSize:     100,
		SyncMaxWorkers:   2,
		SyncMaxRetries:   2,
		SyncRetryBackoff: time.Millisecond,
		ProviderTimeout:  time.Second,
	}
}

func newSyncFixture(messageProviders []syncdomain.MessageProvider, eventProviders []syncdomain.EventProvider) *syncFixture {
	f := &syncFixture{
		activityRepo: newFakeActivityRepo(),
		runRepo:      &fakeRunRepo{},
		contactRepo: &fakeContactRepo{contacts: []crmdomain.Contact{
			{ID: "c1", Name: "Jane Doe", PrimaryEmail: "jane@acme.com", AccountID: "a1"},
			{ID: "c2", Name: "Bob Stone", PrimaryEmail: "bob@globex.com"},
		}},
		accountRepo: &fakeAccountRepo{},
	}
	userRepo := &fakeUserRepo{users: map[string]*authdomain.User{
		"u1": {ID: "u1", GoogleAccessToken: "at", GoogleRefreshToken: "rt"},
		"u2": {ID: "u2"},
	}}
	f.usecase = NewSyncUsecase(
		f.activityRepo, f.runRepo, f.contactRepo, f.accountRepo, userRepo,
		messageProviders, eventProviders, testConfig(), testLogger(),
	).(*syncUsecase)
	return f
}

func staticMessageProvider(name string, msgs []syncdomain.NormalizedMessage, recordErrs ...error) *fakeMessageProvider {
	return &fakeMessageProvider{name: name, fetch: func(int) (*syncdomain.MessageFetchResult, error) {
		return &syncdomain.MessageFetchResult{Messages: msgs, RecordErrors: recordErrs}, nil
	}}
}

func TestRunSyncHappyPath(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	msgs := []syncdomain.NormalizedMessage{
		{ID: "m1", FromEmail: "jane@acme.com", Subject: "hello", Timestamp: t1},
		{ID: "m2", FromEmail: "stranger@nowhere.com", Subject: "spam", Timestamp: t1},
	}
	events := []syncdomain.NormalizedEvent{
		{ID: "e1", Title: "Sync with Jane Doe", Attendees: []string{"me@ours.com"}, Start: t2},
	}
	fx := newSyncFixture(
		[]syncdomain.MessageProvider{staticMessageProvider("gmail", msgs)},
		[]syncdomain.EventProvider{&fakeEventProvider{name: "google-calendar", fetch: func() (*syncdomain.EventFetchResult, error) {
			return &syncdomain.EventFetchResult{Events: events}, nil
		}}},
	)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, syncdomain.RunStatusCompleted, resp.Status)
	assert.Equal(t, 3, resp.Fetched)
	assert.Equal(t, 2, resp.Matched)
	assert.Equal(t, 3, resp.Persisted)
	assert.Equal(t, 0, resp.Skipped)
	assert.Equal(t, 0, resp.Failed)

	// Both matched records belong to Jane; the event is newest, so her
	// last-touch candidate is the event start.
	require.Len(t, fx.contactRepo.touches, 1)
	assert.Equal(t, "c1", fx.contactRepo.touches[0].id)
	assert.Equal(t, t2, fx.contactRepo.touches[0].at)
	require.Len(t, fx.accountRepo.touches, 1)
	assert.Equal(t, "a1", fx.accountRepo.touches[0].id)
	assert.Equal(t, t2, resp.LastTouch["contact:c1"])
	assert.Equal(t, t2, resp.LastTouch["account:a1"])

	n, _ := fx.activityRepo.CountByProvider("gmail")
	assert.Equal(t, int64(2), n)
}

func TestRunSyncIsIdempotent(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := []syncdomain.NormalizedMessage{
		{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1},
		{ID: "m2", FromEmail: "bob@globex.com", Timestamp: t1},
	}
	fx := newSyncFixture([]syncdomain.MessageProvider{staticMessageProvider("gmail", msgs)}, nil)

	first, err := fx.usecase.RunSync(context.Background(), "u1")
	require.NoError(t, err)
	second, err := fx.usecase.RunSync(context.Background(), "u1")
	require.NoError(t, err)

	// Same window, same records: the second run re-persists in place and
	// the row count stays flat.
	assert.Equal(t, first.Persisted, second.Persisted)
	n, _ := fx.activityRepo.CountByProvider("gmail")
	assert.Equal(t, int64(2), n)
}

func TestRunSyncNoCredential(t *testing.T) {
	fx := newSyncFixture(nil, nil)

	resp, err := fx.usecase.RunSync(context.Background(), "u2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, syncdomain.ErrCredential))
	assert.Nil(t, resp)
	// Rejected before any run record was written.
	assert.Empty(t, fx.runRepo.runs)
}

func TestRunSyncUnknownUser(t *testing.T) {
	fx := newSyncFixture(nil, nil)

	_, err := fx.usecase.RunSync(context.Background(), "missing")

	assert.True(t, errors.Is(err, syncdomain.ErrCredential))
}

func TestRunSyncCredentialFailureIsFatal(t *testing.T) {
	provider := &fakeMessageProvider{name: "gmail", fetch: func(int) (*syncdomain.MessageFetchResult, error) {
		return nil, fmt.Errorf("%w: token revoked", syncdomain.ErrCredential)
	}}
	fx := newSyncFixture([]syncdomain.MessageProvider{provider}, nil)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, syncdomain.ErrCredential))
	assert.Nil(t, resp)
	require.Len(t, fx.runRepo.runs, 1)
	assert.Equal(t, syncdomain.RunStatusFailed, fx.runRepo.runs[0].Status)
	assert.NotEmpty(t, fx.runRepo.runs[0].Error)
	// No retries for credential failures.
	assert.Equal(t, 1, provider.calls)
}

func TestRunSyncRetriesTransientThenSucceeds(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	provider := &fakeMessageProvider{name: "gmail", fetch: func(call int) (*syncdomain.MessageFetchResult, error) {
		if call == 1 {
			return nil, fmt.Errorf("%w: upstream hiccup", syncdomain.ErrTransient)
		}
		return &syncdomain.MessageFetchResult{Messages: []syncdomain.NormalizedMessage{
			{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1},
		}}, nil
	}}
	fx := newSyncFixture([]syncdomain.MessageProvider{provider}, nil)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 1, resp.Fetched)
	assert.Equal(t, 0, resp.Failed)
}

func TestRunSyncDropsFetchAfterRetriesExhausted(t *testing.T) {
	provider := &fakeMessageProvider{name: "gmail", fetch: func(int) (*syncdomain.MessageFetchResult, error) {
		return nil, fmt.Errorf("%w: still throttled", syncdomain.ErrRateLimited)
	}}
	fx := newSyncFixture([]syncdomain.MessageProvider{provider}, nil)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	// The run survives; the drop shows up in its counters.
	require.NoError(t, err)
	assert.Equal(t, syncdomain.RunStatusCompleted, resp.Status)
	assert.Equal(t, 0, resp.Fetched)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 3, provider.calls) // initial attempt + SyncMaxRetries
}

func TestRunSyncCountsMalformedRecordsAsSkipped(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := []syncdomain.NormalizedMessage{{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1}}
	provider := staticMessageProvider("gmail", msgs,
		&syncdomain.ParseError{RecordID: "m2", Reason: "missing payload"},
		fmt.Errorf("%w: get failed", syncdomain.ErrTransient),
	)
	fx := newSyncFixture([]syncdomain.MessageProvider{provider}, nil)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Fetched)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 1, resp.Persisted)
}

func TestRunSyncStoreUnavailableIsFatal(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := []syncdomain.NormalizedMessage{{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1}}
	fx := newSyncFixture([]syncdomain.MessageProvider{staticMessageProvider("gmail", msgs)}, nil)
	fx.activityRepo.upsertErr = fmt.Errorf("%w: connection refused", syncdomain.ErrStoreUnavailable)

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, syncdomain.ErrStoreUnavailable))
	assert.Nil(t, resp)
	require.Len(t, fx.runRepo.runs, 1)
	assert.Equal(t, syncdomain.RunStatusFailed, fx.runRepo.runs[0].Status)
}

func TestRunSyncCountsNonFatalPersistFailures(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := []syncdomain.NormalizedMessage{
		{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1},
		{ID: "m2", FromEmail: "bob@globex.com", Timestamp: t1},
	}
	fx := newSyncFixture([]syncdomain.MessageProvider{staticMessageProvider("gmail", msgs)}, nil)
	fx.activityRepo.upsertErr = errors.New("value too long for column")
	fx.activityRepo.failOn = "m2"

	resp, err := fx.usecase.RunSync(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, syncdomain.RunStatusCompleted, resp.Status)
	assert.Equal(t, 1, resp.Persisted)
	assert.Equal(t, 1, resp.Failed)
}

func TestRunSyncSameOutcomeRegardlessOfProviderOrder(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgsA := []syncdomain.NormalizedMessage{{ID: "m1", FromEmail: "jane@acme.com", Timestamp: t1}}
	msgsB := []syncdomain.NormalizedMessage{{ID: "m2", FromEmail: "bob@globex.com", Timestamp: t1}}

	run := func(providers []syncdomain.MessageProvider) *fakeActivityRepo {
		fx := newSyncFixture(providers, nil)
		_, err := fx.usecase.RunSync(context.Background(), "u1")
		require.NoError(t, err)
		return fx.activityRepo
	}

	forward := run([]syncdomain.MessageProvider{staticMessageProvider("gmail", msgsA), staticMessageProvider("imap", msgsB)})
	reversed := run([]syncdomain.MessageProvider{staticMessageProvider("imap", msgsB), staticMessageProvider("gmail", msgsA)})

	assert.Equal(t, forward.rows["gmail|m1"].ContactID, reversed.rows["gmail|m1"].ContactID)
	assert.Equal(t, forward.rows["imap|m2"].ContactID, reversed.rows["imap|m2"].ContactID)
}
