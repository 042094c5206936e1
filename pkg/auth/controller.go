package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/porter/pkg/browser"
	"github.com/entrhq/porter/pkg/logging"
	"github.com/entrhq/porter/pkg/magiclink"
	"github.com/entrhq/porter/pkg/session"
)

const (
	// DefaultLinkPollInterval is how often the hand-off slot is re-read.
	DefaultLinkPollInterval = 5 * time.Second

	// DefaultLinkTimeout is the ceiling on human response time.
	DefaultLinkTimeout = 5 * time.Minute

	// DefaultSubmitPollInterval and DefaultSubmitPollAttempts bound the wait
	// for client-side validation to enable the submit control.
	DefaultSubmitPollInterval = 500 * time.Millisecond
	DefaultSubmitPollAttempts = 20
)

// Config holds everything the controller needs to drive one login flow.
type Config struct {
	// Email is the account identity the magic link is sent to.
	Email string

	// ProtectedURL is a page that requires authentication; it doubles as
	// the empirical session-validity probe.
	ProtectedURL string

	// LoginURL is the login entry point carrying the email form.
	LoginURL string

	// EmailSelectors and SubmitSelectors are the ordered form heuristics.
	// Empty means the package defaults.
	EmailSelectors  []string
	SubmitSelectors []string

	// LinkPollInterval and LinkTimeout govern the hand-off wait.
	LinkPollInterval time.Duration
	LinkTimeout      time.Duration

	// SubmitPollInterval and SubmitPollAttempts govern the submit poll.
	SubmitPollInterval time.Duration
	SubmitPollAttempts int
}

func (c *Config) applyDefaults() {
	if len(c.EmailSelectors) == 0 {
		c.EmailSelectors = DefaultEmailSelectors
	}
	if len(c.SubmitSelectors) == 0 {
		c.SubmitSelectors = DefaultSubmitSelectors
	}
	if c.LinkPollInterval <= 0 {
		c.LinkPollInterval = DefaultLinkPollInterval
	}
	if c.LinkTimeout <= 0 {
		c.LinkTimeout = DefaultLinkTimeout
	}
	if c.SubmitPollInterval <= 0 {
		c.SubmitPollInterval = DefaultSubmitPollInterval
	}
	if c.SubmitPollAttempts <= 0 {
		c.SubmitPollAttempts = DefaultSubmitPollAttempts
	}
}

// Controller runs the authentication state machine against one browser page,
// one session store and one hand-off slot. On successful return the page
// holds a session capable of reaching the protected content.
type Controller struct {
	page     browser.Page
	store    session.Store
	channel  magiclink.Channel
	detector Detector
	cfg      Config
	log      *logging.Logger
}

// NewController wires a controller. log may be nil.
func NewController(page browser.Page, store session.Store, channel magiclink.Channel, detector Detector, cfg Config, log *logging.Logger) *Controller {
	cfg.applyDefaults()
	return &Controller{
		page:     page,
		store:    store,
		channel:  channel,
		detector: detector,
		cfg:      cfg,
		log:      log,
	}
}

// Authenticate drives the machine from Unknown to a terminal state and
// returns the classified error when that state is Failed. There is no
// automatic retry of the whole machine within one run.
func (c *Controller) Authenticate(ctx context.Context) error {
	state := Unknown
	outcome := OutcomeBegin

	var linkURL string
	var runErr error

	for {
		var effect Effect
		state, effect = Next(state, outcome)
		c.debugf("state=%s effect=%s", state, effect)

		if state.Terminal() {
			if state == Failed {
				c.errorf("authentication failed: %v", runErr)
				return runErr
			}
			if effect == EffectFinalize {
				if err := c.finalize(); err != nil {
					c.errorf("finalize failed: %v", err)
					return err
				}
			}
			c.infof("authenticated at %s", c.page.URL())
			return nil
		}

		switch effect {
		case EffectCheckSession:
			outcome = c.checkSession(ctx)

		case EffectRequestLink:
			if err := c.requestLink(ctx); err != nil {
				runErr = err
				outcome = OutcomeFault
			} else {
				outcome = OutcomeLinkRequested
			}

		case EffectAwaitLink:
			url, err := c.awaitLink(ctx)
			if err != nil {
				runErr = err
				outcome = OutcomeFault
			} else {
				linkURL = url
				outcome = OutcomeLinkReceived
			}

		case EffectConsumeLink:
			if err := c.consumeLink(ctx, linkURL); err != nil {
				runErr = err
				outcome = OutcomeFault
			} else {
				outcome = OutcomeLinkAccepted
			}

		default:
			runErr = fmt.Errorf("no effect defined for state %s", state)
			outcome = OutcomeFault
		}
	}
}

// CheckSession runs only the session probe: restore the persisted session
// and report whether it still reaches the protected content. Used by the
// -check mode; never touches the hand-off slot.
func (c *Controller) CheckSession(ctx context.Context) bool {
	return c.checkSession(ctx) == OutcomeSessionValid
}

// checkSession restores the persisted cookie set (no-op when absent),
// navigates to the protected page and applies the authenticated predicate.
// Every failure path, including navigation errors, maps to SessionInvalid:
// the remedy is always a fresh login.
func (c *Controller) checkSession(ctx context.Context) Outcome {
	sess, err := c.store.Load()
	if err != nil {
		c.warnf("session load failed, treating as absent: %v", err)
	}
	if !sess.IsEmpty() {
		if err := c.page.SetCookies(sess.Cookies); err != nil {
			c.warnf("cookie import failed: %v", err)
		} else {
			c.debugf("restored %d cookies", len(sess.Cookies))
		}
	}

	if err := c.page.Navigate(ctx, c.cfg.ProtectedURL); err != nil {
		c.infof("protected probe navigation failed: %v", err)
		return OutcomeSessionInvalid
	}

	text, err := c.page.Text()
	if err != nil {
		c.infof("protected probe text read failed: %v", err)
		return OutcomeSessionInvalid
	}

	if c.detector.Authenticated(c.page.URL(), text) {
		c.infof("persisted session still valid")
		return OutcomeSessionValid
	}

	c.infof("persisted session invalid or absent, requesting magic link")
	return OutcomeSessionInvalid
}

// requestLink drives the login form: locate the email input, enter the
// address, synthesize the events client-side validation listens for, then
// click the submit control once it enables.
func (c *Controller) requestLink(ctx context.Context) error {
	if err := c.page.Navigate(ctx, c.cfg.LoginURL); err != nil {
		return fmt.Errorf("login entry navigation: %w", err)
	}

	selector, err := findEmailInput(c.page, c.cfg.EmailSelectors)
	if err != nil {
		return err
	}
	c.debugf("email input located via %s", selector)

	if err := c.page.Fill(selector, c.cfg.Email); err != nil {
		return fmt.Errorf("email fill at %s: %w", c.page.URL(), err)
	}

	if err := c.page.DispatchEvents(selector, "input", "change", "blur"); err != nil {
		return fmt.Errorf("validation events at %s: %w", c.page.URL(), err)
	}

	if err := submitWhenEnabled(ctx, c.page, c.cfg.SubmitSelectors, c.cfg.SubmitPollAttempts, c.cfg.SubmitPollInterval); err != nil {
		return err
	}

	c.infof("magic link requested for %s", c.cfg.Email)
	return nil
}

// awaitLink blocks on the hand-off slot until a human deposits the emailed
// URL, mapping the poll-ceiling expiry to the classified timeout.
func (c *Controller) awaitLink(ctx context.Context) (string, error) {
	c.infof("waiting for magic link (poll %s, ceiling %s)", c.cfg.LinkPollInterval, c.cfg.LinkTimeout)

	url, err := magiclink.Await(ctx, c.channel, c.cfg.LinkPollInterval, c.cfg.LinkTimeout)
	if err != nil {
		if err == magiclink.ErrAwaitTimeout {
			return "", fmt.Errorf("%w: after %s", ErrMagicLinkTimeout, c.cfg.LinkTimeout)
		}
		return "", err
	}
	return url, nil
}

// consumeLink visits the single-use URL and re-runs the authenticated
// predicate. Nothing is deleted here: the token survives any failure on this
// path, and deletion happens in finalize, strictly after persistence.
func (c *Controller) consumeLink(ctx context.Context, url string) error {
	if err := c.page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("%w: link navigation: %v", ErrMagicLinkAuthFailed, err)
	}

	if err := c.page.WaitForSettle(ctx); err != nil {
		c.warnf("settle wait after link: %v", err)
	}

	text, err := c.page.Text()
	if err != nil {
		return fmt.Errorf("%w: post-link text read: %v", ErrMagicLinkAuthFailed, err)
	}

	if !c.detector.Authenticated(c.page.URL(), text) {
		return fmt.Errorf("%w: page at %s did not pass authenticated check", ErrMagicLinkAuthFailed, c.page.URL())
	}

	return nil
}

// finalize persists the session first and clears the consumed token second.
// A crash between the two leaves the token available; re-consuming it is
// harmless because the next run short-circuits at CheckingSession with the
// persisted session.
func (c *Controller) finalize() error {
	cookies, err := c.page.Cookies()
	if err != nil {
		return fmt.Errorf("cookie export: %w", err)
	}

	if err := c.store.Save(&session.Session{Cookies: cookies}); err != nil {
		return fmt.Errorf("session persist: %w", err)
	}
	c.infof("session persisted (%d cookies)", len(cookies))

	if err := c.channel.Clear(); err != nil {
		// Session is already persisted and usable; a lingering token is
		// safe to leave behind.
		c.warnf("token clear failed: %v", err)
		return nil
	}
	c.debugf("consumed token cleared")
	return nil
}

func (c *Controller) debugf(format string, v ...interface{}) {
	if c.log != nil {
		c.log.Debugf(format, v...)
	}
}

func (c *Controller) infof(format string, v ...interface{}) {
	if c.log != nil {
		c.log.Infof(format, v...)
	}
}

func (c *Controller) warnf(format string, v ...interface{}) {
	if c.log != nil {
		c.log.Warnf(format, v...)
	}
}

func (c *Controller) errorf(format string, v ...interface{}) {
	if c.log != nil {
		c.log.Errorf(format, v...)
	}
}
