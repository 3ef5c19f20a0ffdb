package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Failure taxonomy for one sync run. Credential and store-availability
// failures abort the run; everything else is absorbed into run counters.
var (
	// ErrCredential means the stored credential is missing, expired or
	// revoked. Fatal to the run, surfaced to the caller as 401.
	ErrCredential = errors.New("credential missing or expired")

	// ErrRateLimited means the provider throttled us. Retried with backoff,
	// then the affected page is dropped and counted.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrTransient covers timeouts and 5xx-class provider failures. Same
	// retry/drop policy as ErrRateLimited.
	ErrTransient = errors.New("transient provider failure")

	// ErrStoreConflict is a duplicate-key race between overlapping runs.
	// Treated as a successful no-op write.
	ErrStoreConflict = errors.New("record already persisted")

	// ErrStoreUnavailable means the persistence layer is down. Fatal to the
	// run, surfaced to the caller as 500.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ParseError marks a single malformed provider record. Scoped to that
// record: it is skipped and counted, never fatal.
type ParseError struct {
	RecordID string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse record %s: %s", e.RecordID, e.Reason)
}

// ClassifyProviderError folds a raw provider error into the taxonomy so the
// orchestrator can apply differentiated policy. Unknown failures are treated
// as transient: they get the retry/drop path rather than aborting the run.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCredential) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) {
		return err
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrCredential, err)
		case gerr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	// OAuth token exchange failures (e.g. invalid_grant on a revoked
	// refresh token) mean we cannot authenticate at all.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %v", ErrCredential, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Retryable reports whether the error class is worth another attempt before
// the page is dropped.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
