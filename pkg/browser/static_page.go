package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/porter/pkg/session"
)

// StaticPage is the in-memory Page adapter: a set of canned documents keyed
// by URL, with scriptable form behavior. It exists so the authentication
// state machine and the extraction pipeline can be exercised deterministically
// without a real browser.
type StaticPage struct {
	mu        sync.Mutex
	pages     map[string]string
	redirects map[string]string
	failNav   map[string]int
	current   string
	doc       *goquery.Document
	raw       string
	filled    map[string]string
	events    map[string][]string
	enableIn  map[string]int
	clicks    map[string]func(p *StaticPage) error
	cookies   []session.Cookie
}

// NewStaticPage creates an empty static page. Add documents with AddPage
// before navigating.
func NewStaticPage() *StaticPage {
	return &StaticPage{
		pages:     make(map[string]string),
		redirects: make(map[string]string),
		failNav:   make(map[string]int),
		filled:    make(map[string]string),
		events:    make(map[string][]string),
		enableIn:  make(map[string]int),
		clicks:    make(map[string]func(p *StaticPage) error),
	}
}

// AddPage registers the markup served for url.
func (p *StaticPage) AddPage(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[url] = html
}

// SetRedirect makes navigations to from land on to instead.
func (p *StaticPage) SetRedirect(from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects[from] = to
}

// FailNavigation makes the next n navigations to url fail before succeeding.
func (p *StaticPage) FailNavigation(url string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNav[url] = n
}

// EnableAfter makes IsEnabled for selector report false for the next n calls.
func (p *StaticPage) EnableAfter(selector string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enableIn[selector] = n
}

// OnClick registers behavior to run when selector is clicked.
func (p *StaticPage) OnClick(selector string, fn func(p *StaticPage) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks[selector] = fn
}

// Filled returns the last value filled into selector.
func (p *StaticPage) Filled(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled[selector]
}

// EventsFor returns the synthetic events dispatched on selector, in order.
func (p *StaticPage) EventsFor(selector string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events[selector]...)
}

// Navigate resolves redirects and loads the canned document for url.
// Unregistered URLs and exhausted FailNavigation budgets return
// ErrNavigationFailed, mirroring a retried-out real navigation.
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if remaining, ok := p.failNav[url]; ok && remaining > 0 {
		p.failNav[url] = remaining - 1
		return fmt.Errorf("%w: %s: injected failure", ErrNavigationFailed, url)
	}

	target := url
	if to, ok := p.redirects[url]; ok {
		target = to
	}

	html, ok := p.pages[target]
	if !ok {
		return fmt.Errorf("%w: %s: no such page", ErrNavigationFailed, target)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigationFailed, target, err)
	}

	p.current = target
	p.doc = doc
	p.raw = html
	return nil
}

func (p *StaticPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *StaticPage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return p.raw, nil
}

func (p *StaticPage) Text() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}

	if body := p.doc.Find("body"); body.Length() > 0 {
		return body.Text(), nil
	}
	return p.doc.Text(), nil
}

func (p *StaticPage) Exists(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return false, fmt.Errorf("no page loaded")
	}
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *StaticPage) Fill(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("fill failed for %s: no such element", selector)
	}
	p.filled[selector] = value
	return nil
}

func (p *StaticPage) DispatchEvents(selector string, events ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("dispatch failed for %s: no such element", selector)
	}
	p.events[selector] = append(p.events[selector], events...)
	return nil
}

func (p *StaticPage) IsEnabled(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return false, fmt.Errorf("no page loaded")
	}

	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return false, fmt.Errorf("enabled check failed for %s: no such element", selector)
	}

	if remaining, ok := p.enableIn[selector]; ok && remaining > 0 {
		p.enableIn[selector] = remaining - 1
		return false, nil
	}

	_, disabled := sel.First().Attr("disabled")
	return !disabled, nil
}

func (p *StaticPage) Click(selector string) error {
	p.mu.Lock()
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		p.mu.Unlock()
		return fmt.Errorf("click failed for %s: no such element", selector)
	}
	fn := p.clicks[selector]
	p.mu.Unlock()

	if fn != nil {
		return fn(p)
	}
	return nil
}

func (p *StaticPage) WaitForSettle(ctx context.Context) error {
	return ctx.Err()
}

func (p *StaticPage) Cookies() ([]session.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Cookie(nil), p.cookies...), nil
}

func (p *StaticPage) SetCookies(cookies []session.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, cookies...)
	return nil
}
