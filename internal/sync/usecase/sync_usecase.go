package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	authrepo "traction-backend/internal/auth/repository"
	crmrepo "traction-backend/internal/crm/repository"
	syncdomain "traction-backend/internal/sync/domain"
	syncdto "traction-backend/internal/sync/dto"
	syncrepo "traction-backend/internal/sync/repository"
	"traction-backend/pkg/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// syncUsecase implements SyncUsecase. One call to RunSync is one run of the
// fetch → match → aggregate → persist pipeline; only the fetch stage is
// concurrent, bounded by a channel semaphore.
type syncUsecase struct {
	activityRepo     syncrepo.ActivityRepository
	runRepo          syncrepo.SyncRunRepository
	contactRepo      crmrepo.ContactRepository
	accountRepo      crmrepo.AccountRepository
	userRepo         authrepo.UserRepository
	messageProviders []syncdomain.MessageProvider
	eventProviders   []syncdomain.EventProvider
	config           *config.Config
	logger           *logrus.Logger
	now              func() time.Time
}

// NewSyncUsecase creates a new instance of syncUsecase
func NewSyncUsecase(
	activityRepo syncrepo.ActivityRepository,
	runRepo syncrepo.SyncRunRepository,
	contactRepo crmrepo.ContactRepository,
	accountRepo crmrepo.AccountRepository,
	userRepo authrepo.UserRepository,
	messageProviders []syncdomain.MessageProvider,
	eventProviders []syncdomain.EventProvider,
	cfg *config.Config,
	logger *logrus.Logger,
) SyncUsecase {
	return &syncUsecase{
		activityRepo:     activityRepo,
		runRepo:          runRepo,
		contactRepo:      contactRepo,
		accountRepo:      accountRepo,
		userRepo:         userRepo,
		messageProviders: messageProviders,
		eventProviders:   eventProviders,
		config:           cfg,
		logger:           logger,
		now:              time.Now,
	}
}

type fetchedMessage struct {
	provider string
	msg      syncdomain.NormalizedMessage
}

type fetchedEvent struct {
	provider string
	ev       syncdomain.NormalizedEvent
}

type fetchOutcome struct {
	messages []fetchedMessage
	events   []fetchedEvent
	skipped  int // malformed records
	failed   int // pages/records dropped after retries
}

func (u *syncUsecase) RunSync(ctx context.Context, userID string) (*syncdto.SyncRunResponse, error) {
	creds, err := u.credentialsFor(userID)
	if err != nil {
		return nil, err
	}

	end := u.now()
	window := syncdomain.Window{Start: end.AddDate(0, 0, -u.config.SyncWindowDays), End: end}

	run := &syncdomain.SyncRun{
		UserID:      userID,
		Provider:    u.providerNames(),
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Status:      syncdomain.RunStatusRunning,
		StartedAt:   end,
	}
	if err := u.runRepo.Create(run); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err)
	}

	// Fetching
	outcome, err := u.fetchAll(ctx, creds, window)
	if err != nil {
		return nil, u.failRun(run, err)
	}
	run.Fetched = len(outcome.messages) + len(outcome.events)
	run.Skipped = outcome.skipped
	run.Failed = outcome.failed

	// Matching
	contacts, err := u.contactRepo.ListWithAliases()
	if err != nil {
		return nil, u.failRun(run, fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err))
	}
	dir := BuildDirectory(contacts, u.logger)

	activities := make([]syncdomain.Activity, 0, run.Fetched)
	matched := make([]matchedRecord, 0, run.Fetched)
	for _, fm := range outcome.messages {
		match := MatchMessage(dir, fm.msg)
		if match.Strategy != syncdomain.MatchNone {
			run.Matched++
			matched = append(matched, matchedRecord{match.ContactID, match.AccountID, fm.msg.Timestamp})
		}
		activities = append(activities, syncdomain.MessageActivity(fm.provider, fm.msg, match))
	}
	for _, fe := range outcome.events {
		match := MatchEvent(dir, fe.ev)
		if match.Strategy != syncdomain.MatchNone {
			run.Matched++
			matched = append(matched, matchedRecord{match.ContactID, match.AccountID, fe.ev.Start})
		}
		activities = append(activities, syncdomain.EventActivity(fe.provider, fe.ev, match))
	}

	// Aggregating
	candidates := aggregateLastTouch(matched)

	// Persisting
	for i := range activities {
		if err := u.activityRepo.Upsert(&activities[i]); err != nil {
			if errors.Is(err, syncdomain.ErrStoreUnavailable) {
				return nil, u.failRun(run, err)
			}
			run.Failed++
			u.logger.WithError(err).WithField("record_id", activities[i].ProviderRecordID).Warn("unable to persist record")
			continue
		}
		run.Persisted++
	}

	lastTouch := make(map[string]time.Time)
	for contactID, ts := range candidates.Contacts {
		if _, err := u.contactRepo.TouchLastContacted(contactID, ts); err != nil {
			u.logger.WithError(err).WithField("contact_id", contactID).Warn("unable to update contact last touch")
			continue
		}
		lastTouch["contact:"+contactID] = ts
	}
	for accountID, ts := range candidates.Accounts {
		if _, err := u.accountRepo.TouchLastContacted(accountID, ts); err != nil {
			u.logger.WithError(err).WithField("account_id", accountID).Warn("unable to update account last touch")
			continue
		}
		lastTouch["account:"+accountID] = ts
	}

	run.Status = syncdomain.RunStatusCompleted
	finished := u.now()
	run.FinishedAt = &finished
	if err := u.runRepo.Update(run); err != nil {
		u.logger.WithError(err).WithField("run_id", run.ID).Warn("unable to finalize run record")
	}

	u.logger.WithFields(logrus.Fields{
		"run_id":    run.ID,
		"fetched":   run.Fetched,
		"matched":   run.Matched,
		"persisted": run.Persisted,
		"skipped":   run.Skipped,
		"failed":    run.Failed,
	}).Info("sync run completed")

	return &syncdto.SyncRunResponse{
		RunID:       run.ID,
		Provider:    run.Provider,
		WindowStart: run.WindowStart,
		WindowEnd:   run.WindowEnd,
		Status:      run.Status,
		Fetched:     run.Fetched,
		Matched:     run.Matched,
		Persisted:   run.Persisted,
		Skipped:     run.Skipped,
		Failed:      run.Failed,
		LastTouch:   lastTouch,
	}, nil
}

func (u *syncUsecase) ListRuns(userID string, limit int) ([]syncdomain.SyncRun, error) {
	return u.runRepo.ListByUser(userID, limit)
}

func (u *syncUsecase) ListActivitiesByContact(contactID string, limit int) ([]syncdomain.Activity, error) {
	return u.activityRepo.ListByContact(contactID, limit)
}

// fetchAll runs every provider fetch concurrently under the worker cap.
// Credential failures are fatal and cancel the siblings; everything else is
// retried, then dropped and counted.
func (u *syncUsecase) fetchAll(ctx context.Context, creds syncdomain.Credentials, window syncdomain.Window) (*fetchOutcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		outcome fetchOutcome
		fatal   error
		wg      sync.WaitGroup
	)
	semaphore := make(chan struct{}, u.maxWorkers())

	recordFatal := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
		}
		mu.Unlock()
		cancel()
	}

	collectRecordErrors := func(recordErrors []error) {
		mu.Lock()
		for _, rerr := range recordErrors {
			var parseErr *syncdomain.ParseError
			if errors.As(rerr, &parseErr) {
				outcome.skipped++
			} else {
				outcome.failed++
			}
		}
		mu.Unlock()
		for _, rerr := range recordErrors {
			u.logger.WithError(rerr).Debug("record-scoped fetch failure")
		}
	}

	for _, provider := range u.messageProviders {
		wg.Add(1)
		go func(p syncdomain.MessageProvider) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			var result *syncdomain.MessageFetchResult
			err := u.withRetry(runCtx, p.Name(), func(callCtx context.Context) error {
				var ferr error
				result, ferr = p.FetchMessages(callCtx, creds, window, u.config.SyncPageSize)
				return ferr
			})
			if err != nil {
				if errors.Is(err, syncdomain.ErrCredential) {
					recordFatal(err)
					return
				}
				mu.Lock()
				outcome.failed++
				mu.Unlock()
				u.logger.WithError(err).WithField("provider", p.Name()).Warn("dropping provider fetch after retries")
				return
			}

			mu.Lock()
			for _, msg := range result.Messages {
				outcome.messages = append(outcome.messages, fetchedMessage{provider: p.Name(), msg: msg})
			}
			mu.Unlock()
			collectRecordErrors(result.RecordErrors)
		}(provider)
	}

	for _, provider := range u.eventProviders {
		wg.Add(1)
		go func(p syncdomain.EventProvider) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			var result *syncdomain.EventFetchResult
			err := u.withRetry(runCtx, p.Name(), func(callCtx context.Context) error {
				var ferr error
				result, ferr = p.FetchEvents(callCtx, creds, window, u.config.SyncPageSize)
				return ferr
			})
			if err != nil {
				if errors.Is(err, syncdomain.ErrCredential) {
					recordFatal(err)
					return
				}
				mu.Lock()
				outcome.failed++
				mu.Unlock()
				u.logger.WithError(err).WithField("provider", p.Name()).Warn("dropping provider fetch after retries")
				return
			}

			mu.Lock()
			for _, ev := range result.Events {
				outcome.events = append(outcome.events, fetchedEvent{provider: p.Name(), ev: ev})
			}
			mu.Unlock()
			collectRecordErrors(result.RecordErrors)
		}(provider)
	}

	wg.Wait()
	if fatal != nil {
		return nil, fatal
	}
	return &outcome, nil
}

// withRetry wraps one fetch unit with the bounded-backoff policy. Every
// attempt runs under the provider timeout so no call blocks indefinitely.
func (u *syncUsecase) withRetry(ctx context.Context, name string, fn func(context.Context) error) error {
	backoff := u.config.SyncRetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= u.config.SyncMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return syncdomain.ClassifyProviderError(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancelCall := context.WithTimeout(ctx, u.config.ProviderTimeout)
		err = fn(callCtx)
		cancelCall()
		if err == nil {
			return nil
		}
		err = syncdomain.ClassifyProviderError(err)
		if !syncdomain.Retryable(err) {
			return err
		}
		if attempt < u.config.SyncMaxRetries {
			u.logger.WithError(err).WithFields(logrus.Fields{
				"provider": name,
				"attempt":  attempt + 1,
			}).Warn("provider fetch failed, retrying")
		}
	}
	return err
}

func (u *syncUsecase) credentialsFor(userID string) (syncdomain.Credentials, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return syncdomain.Credentials{}, fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err)
	}
	if user == nil || !user.HasProviderCredential() {
		return syncdomain.Credentials{}, fmt.Errorf("%w: no provider credential on file", syncdomain.ErrCredential)
	}
	return syncdomain.Credentials{
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		OnRefresh: func(token *oauth2.Token) error {
			return u.userRepo.UpdateGoogleTokens(user.ID, token)
		},
	}, nil
}

func (u *syncUsecase) failRun(run *syncdomain.SyncRun, cause error) error {
	run.Status = syncdomain.RunStatusFailed
	run.Error = cause.Error()
	finished := u.now()
	run.FinishedAt = &finished
	if err := u.runRepo.Update(run); err != nil {
		u.logger.WithError(err).WithField("run_id", run.ID).Error("unable to finalize failed run record")
	}
	return cause
}

func (u *syncUsecase) maxWorkers() int {
	if u.config.SyncMaxWorkers > 0 {
		return u.config.SyncMaxWorkers
	}
	return 4
}

func (u *syncUsecase) providerNames() string {
	names := make([]string, 0, len(u.messageProviders)+len(u.eventProviders))
	for _, p := range u.messageProviders {
		names = append(names, p.Name())
	}
	for _, p := range u.eventProviders {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}
