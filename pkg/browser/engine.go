package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultNavTimeout bounds a single navigation attempt.
	DefaultNavTimeout = 30 * time.Second

	// DefaultNavRetries is how many times a failed navigation is retried
	// before ErrNavigationFailed surfaces.
	DefaultNavRetries = 2

	// DefaultRetryBackoff is the fixed pause between navigation retries.
	DefaultRetryBackoff = 2 * time.Second

	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
)

// Options configures the production browser engine.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// NavTimeout bounds each navigation attempt and settle wait.
	NavTimeout time.Duration

	// NavRetries is the number of retries after a failed navigation attempt.
	NavRetries int

	// RetryBackoff is the fixed pause between retries.
	RetryBackoff time.Duration
}

func (o *Options) applyDefaults() {
	if o.NavTimeout <= 0 {
		o.NavTimeout = DefaultNavTimeout
	}
	if o.NavRetries < 0 {
		o.NavRetries = DefaultNavRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
}

// Engine owns the Playwright runtime and one browser/context/page triple.
// Start acquires the page; Shutdown releases everything, including the
// OS-level browser process, and is safe to defer on every exit path.
type Engine struct {
	mu          sync.Mutex
	opts        Options
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	initialized bool
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{opts: opts}
}

// Start installs and boots Playwright if needed, launches Chromium, and
// returns the single Page this run drives.
func (e *Engine) Start() (Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil, fmt.Errorf("browser engine already started")
	}

	// Discard driver output so it cannot interleave with the run report.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultViewportWidth,
			Height: defaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(e.opts.NavTimeout.Milliseconds()))

	e.pw = pw
	e.browser = browser
	e.context = context
	e.page = page
	e.initialized = true

	return &playwrightPage{
		page:    page,
		context: context,
		opts:    e.opts,
	}, nil
}

// Shutdown closes the page, context and browser and stops the Playwright
// driver. Safe to call after a failed Start and safe to call twice.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}

	// Best-effort teardown in reverse acquisition order.
	_ = e.page.Close()
	_ = e.context.Close()
	_ = e.browser.Close()

	e.initialized = false

	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
