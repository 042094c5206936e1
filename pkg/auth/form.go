package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/porter/pkg/browser"
)

// Ordered selection heuristics for locating an email-capable input on an
// unknown login page. First match wins: exact semantic type, then name/id
// substring, then placeholder substring, then a bare text input as last
// resort.
var DefaultEmailSelectors = []string{
	`input[type="email"]`,
	`input[name*="email"]`,
	`input[id*="email"]`,
	`input[placeholder*="email"]`,
	`input[type="text"]`,
}

// Ordered heuristics for the submit control.
var DefaultSubmitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`form button`,
}

// findEmailInput returns the first heuristic selector that matches an
// element on the current page.
func findEmailInput(page browser.Page, selectors []string) (string, error) {
	for _, selector := range selectors {
		ok, err := page.Exists(selector)
		if err != nil {
			return "", fmt.Errorf("email input probe failed at %s: %w", selector, err)
		}
		if ok {
			return selector, nil
		}
	}
	return "", fmt.Errorf("%w: tried %d selectors at %s", ErrNoEmailInput, len(selectors), page.URL())
}

// submitWhenEnabled polls the submit selectors at a fixed interval for a
// bounded number of attempts and clicks the first control that exists and is
// enabled. Client-side validation usually enables the control a beat after
// the synthetic input events fire, hence the poll.
func submitWhenEnabled(ctx context.Context, page browser.Page, selectors []string, attempts int, interval time.Duration) error {
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		for _, selector := range selectors {
			ok, err := page.Exists(selector)
			if err != nil || !ok {
				continue
			}

			enabled, err := page.IsEnabled(selector)
			if err != nil || !enabled {
				continue
			}

			if err := page.Click(selector); err != nil {
				return fmt.Errorf("submit click failed at %s: %w", selector, err)
			}
			return nil
		}
	}

	return fmt.Errorf("%w: after %d polls at %s", ErrSubmitNeverEnabled, attempts, page.URL())
}
