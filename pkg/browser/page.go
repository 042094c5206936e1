// Package browser wraps one controllable browser page behind a capability
// interface, with a Playwright-backed production adapter and an in-memory
// static adapter for deterministic tests.
package browser

import (
	"context"
	"errors"

	"github.com/entrhq/porter/pkg/session"
)

// ErrNavigationFailed is surfaced when navigation still fails after the
// configured number of retries.
var ErrNavigationFailed = errors.New("navigation failed")

// Page is the capability the authentication controller and extraction
// pipeline are written against. One Page wraps one live browser tab (or one
// static document in tests); there is no parallelism behind it.
type Page interface {
	// Navigate loads url, retrying transient failures a bounded number of
	// times with fixed backoff. Exhaustion returns ErrNavigationFailed.
	Navigate(ctx context.Context, url string) error

	// URL returns the current page URL, accounting for redirects.
	URL() string

	// Content returns the full serialized markup of the current page.
	Content() (string, error)

	// Text returns the visible text content of the current page body.
	Text() (string, error)

	// Exists reports whether any element matches the selector.
	Exists(selector string) (bool, error)

	// Fill sets the value of the input matching the selector.
	Fill(selector, value string) error

	// DispatchEvents fires synthetic DOM events (e.g. input, change, blur)
	// on the element matching the selector, in the order given.
	DispatchEvents(selector string, events ...string) error

	// IsEnabled reports whether the element matching the selector is
	// currently enabled.
	IsEnabled(selector string) (bool, error)

	// Click clicks the element matching the selector.
	Click(selector string) error

	// WaitForSettle blocks until network and DOM activity settle, bounded
	// by the adapter's navigation timeout.
	WaitForSettle(ctx context.Context) error

	// Cookies exports the page's current cookie set.
	Cookies() ([]session.Cookie, error)

	// SetCookies imports a cookie set into the page's context.
	SetCookies([]session.Cookie) error
}
