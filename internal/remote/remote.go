package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scald/internal/model"
)

// ErrAuthExpired signals that the supplied credential was rejected by the
// remote provider. The poller reacts by requesting credential renewal and
// suspending until a fresh credential arrives.
var ErrAuthExpired = errors.New("remote credential expired or invalid")

// TransportError wraps transient remote failures: unreachable host,
// malformed response, rate limiting. The affected calendar is skipped for
// the cycle and retried on the next one.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Source fetches the remote provider's view of the user's calendars.
// Implementations resolve or drop events with missing instants before
// returning them, so everything a Source yields is safe to reconcile.
type Source interface {
	// Calendars lists the ids of all calendars visible to the credential.
	Calendars(ctx context.Context, credential string) ([]string, error)

	// Events lists the events of one calendar starting after since.
	Events(ctx context.Context, credential, calendarID string, since time.Time) ([]model.Event, error)
}
