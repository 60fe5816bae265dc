package ingest

import (
	"errors"
	"fmt"

	"polyscope/internal/client/datafeed"
)

// TransientError marks an upstream failure worth retrying with backoff.
// The cursor does not move and status stays running unless the retry
// budget runs out.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// MalformedError marks one bad upstream record. The record is skipped and
// counted; the batch continues.
type MalformedError struct {
	TradeID string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed trade %q: %v", e.TradeID, e.Err)
}
func (e *MalformedError) Unwrap() error { return e.Err }

// PersistenceError marks a storage failure. The batch rolls back as a unit
// and the run ends with status error.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// classifyFeedError wraps upstream errors: server-side and rate-limit
// responses are retryable, client-side responses are not, anything without
// a status (network, timeout) is assumed transient.
func classifyFeedError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *datafeed.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 500 || apiErr.Status == 429 {
			return &TransientError{Err: err}
		}
		return err
	}
	return &TransientError{Err: err}
}
