// Package magiclink implements the hand-off slot between a human actor and
// the authentication controller. A human receives the emailed single-use login
// URL and deposits it in a durable slot; the controller observes the slot and
// clears it only after the login it enabled has been persisted.
//
// The slot is a one-shot rendezvous: a bounded mailbox of capacity one. The
// durable implementation has no native notification, so the wait is poll-based
// at a fixed interval, and every poll re-reads the slot rather than caching a
// value, tolerating the human overwriting it between polls.
package magiclink

import (
	"context"
	"errors"
	"time"
)

// ErrAwaitTimeout is returned by Await when the poll ceiling elapses without
// a URL appearing in the slot.
var ErrAwaitTimeout = errors.New("timed out waiting for magic link")

// Channel is the controller's view of the hand-off slot.
//
// Reading is never destructive. Deleting the token is an explicit action tied
// to a successful, persisted authentication, not to the read itself, so a
// crash between read and persist leaves the token available for retry.
type Channel interface {
	// Peek returns the pending URL and true, or "" and false when the slot
	// is empty.
	Peek() (string, bool, error)

	// Clear deletes the pending URL. Idempotent: clearing an empty slot is
	// not an error.
	Clear() error
}

// Await polls ch at the given interval until a non-empty URL appears, the
// ceiling elapses, or ctx is cancelled. This is the single open-ended wait in
// a run: a human has to read an email, so the ceiling is on the order of
// minutes.
func Await(ctx context.Context, ch Channel, interval, ceiling time.Duration) (string, error) {
	// A token may already be waiting from a previous hand-off.
	if url, ok, err := ch.Peek(); err != nil {
		return "", err
	} else if ok {
		return url, nil
	}

	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case <-deadline.C:
			return "", ErrAwaitTimeout

		case <-ticker.C:
			url, ok, err := ch.Peek()
			if err != nil {
				return "", err
			}
			if ok {
				return url, nil
			}
		}
	}
}
