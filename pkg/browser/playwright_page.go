package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/porter/pkg/session"
)

// playwrightPage adapts one Playwright page to the Page capability.
type playwrightPage struct {
	page    playwright.Page
	context playwright.BrowserContext
	opts    Options
}

// Navigate loads url with bounded retries and fixed backoff. Transient
// failures (timeouts, connection resets) are retried; exhaustion returns
// ErrNavigationFailed so the caller can classify the outcome.
func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	waitUntil := playwright.WaitUntilStateNetworkidle
	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   playwright.Float(float64(p.opts.NavTimeout.Milliseconds())),
	}

	var lastErr error
	attempts := p.opts.NavRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.opts.RetryBackoff):
			}
		}

		if _, err := p.page.Goto(url, gotoOpts); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrNavigationFailed, url, attempts, lastErr)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Content() (string, error) {
	content, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

func (p *playwrightPage) Text() (string, error) {
	body, err := p.page.QuerySelector("body")
	if err != nil {
		return "", fmt.Errorf("body query failed: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("no body element found")
	}

	text, err := body.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

func (p *playwrightPage) Exists(selector string) (bool, error) {
	element, err := p.page.QuerySelector(selector)
	if err != nil {
		return false, fmt.Errorf("selector query failed: %w", err)
	}
	return element != nil, nil
}

func (p *playwrightPage) Fill(selector, value string) error {
	if err := p.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed for %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) DispatchEvents(selector string, events ...string) error {
	for _, event := range events {
		if err := p.page.DispatchEvent(selector, event, nil); err != nil {
			return fmt.Errorf("dispatch %s failed for %s: %w", event, selector, err)
		}
	}
	return nil
}

func (p *playwrightPage) IsEnabled(selector string) (bool, error) {
	enabled, err := p.page.IsEnabled(selector)
	if err != nil {
		return false, fmt.Errorf("enabled check failed for %s: %w", selector, err)
	}
	return enabled, nil
}

func (p *playwrightPage) Click(selector string) error {
	if err := p.page.Click(selector); err != nil {
		return fmt.Errorf("click failed for %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) WaitForSettle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(p.opts.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("settle wait failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Cookies() ([]session.Cookie, error) {
	raw, err := p.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to export cookies: %w", err)
	}

	cookies := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, session.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	return cookies, nil
}

func (p *playwrightPage) SetCookies(cookies []session.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	optional := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(c.Domain),
			Path:   playwright.String(c.Path),
		}
		if c.Expires != 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		optional = append(optional, cookie)
	}

	if err := p.context.AddCookies(optional); err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	return nil
}
