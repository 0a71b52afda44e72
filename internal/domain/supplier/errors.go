package supplier

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Supplier Errors
// ---------------------------------------------------------------------------

var (
	// ErrAuth is a token or login failure; fatal to the current run
	ErrAuth = errors.New("supplier: authentication failed")
	// ErrRateLimited is a daily-cap hit or a live rate-limit response; never retried locally
	ErrRateLimited = errors.New("supplier: rate limited")
	// ErrTransientHTTP is a connection or non-2xx failure that outlived local retries
	ErrTransientHTTP = errors.New("supplier: request failed")
	// ErrInvalidResponse is an unparseable supplier payload
	ErrInvalidResponse = errors.New("supplier: invalid response")
	// ErrLockContention means another run for the same provider holds the lock
	ErrLockContention = errors.New("supplier: sync already running")
	// ErrUnknownProvider means no adapter is registered for a provider code
	ErrUnknownProvider = errors.New("supplier: no adapter registered for provider")
	// ErrAccountNotFound means no active account exists for a provider code
	ErrAccountNotFound = errors.New("supplier: provider account not found")
	// ErrSyncLogNotFound means no log row exists with the given ID
	ErrSyncLogNotFound = errors.New("supplier: sync log not found")
	// ErrSupplierProductNotFound means no link exists for (account, external_id)
	ErrSupplierProductNotFound = errors.New("supplier: supplier product not found")
	// ErrStopIteration is returned by a ListProducts visitor to end listing early
	ErrStopIteration = errors.New("supplier: stop iteration")
	// ErrInvalidCredentials means the credential bag is missing or malformed
	ErrInvalidCredentials = errors.New("supplier: invalid credentials")
)

// ItemError wraps a failure while mapping or upserting a single supplier item.
// The run continues past it.
type ItemError struct {
	ExternalID string
	Err        error
}

func (e *ItemError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("item: %v", e.Err)
	}
	return fmt.Sprintf("item %s: %v", e.ExternalID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
