package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/porter/pkg/browser"
	"github.com/entrhq/porter/pkg/magiclink"
	"github.com/entrhq/porter/pkg/session"
)

const (
	protectedURL = "https://example.com/account/bookings"
	loginURL     = "https://example.com/welcome"
	magicURL     = "https://example.com/magic?token=abc123"
)

const accountHTML = `<html><body>
	<nav>Your account</nav>
	<main>
		<h1>My bookings</h1>
		<div class="booking">Court 4, Saturday 10:00</div>
	</main>
</body></html>`

const welcomeHTML = `<html><body>
	<h1>Sign in</h1>
	<form>
		<input type="email" name="email" placeholder="Enter your email">
		<button type="submit">Send magic link</button>
	</form>
</body></html>`

// spyChannel counts interactions with the hand-off slot.
type spyChannel struct {
	inner  *magiclink.Mailbox
	peeks  int
	clears int
}

func (s *spyChannel) Peek() (string, bool, error) {
	s.peeks++
	return s.inner.Peek()
}

func (s *spyChannel) Clear() error {
	s.clears++
	return s.inner.Clear()
}

func testConfig() Config {
	return Config{
		Email:              "user@example.com",
		ProtectedURL:       protectedURL,
		LoginURL:           loginURL,
		LinkPollInterval:   5 * time.Millisecond,
		LinkTimeout:        500 * time.Millisecond,
		SubmitPollInterval: 5 * time.Millisecond,
		SubmitPollAttempts: 5,
	}
}

func testStore(t *testing.T) *session.FileStore {
	t.Helper()
	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return store
}

// Scenario: no persisted session; the probe lands on the login shell; the
// form is driven; the human deposits a link leading to the account page.
func TestAuthenticate_FullMagicLinkFlow(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.AddPage(protectedURL+"/", accountHTML) // distinct key for the real account page
	page.SetRedirect(protectedURL, loginURL)    // unauthenticated probe bounces to login
	page.SetRedirect(magicURL, protectedURL+"/")
	require.NoError(t, page.SetCookies([]session.Cookie{
		{Name: "auth_token", Value: "issued-by-magic-link", Domain: ".example.com", Path: "/"},
	}))

	store := testStore(t)
	mb := magiclink.NewMailbox()
	mb.Put(magicURL)

	ctrl := NewController(page, store, mb, NewDetector(nil, nil, nil), testConfig(), nil)
	require.NoError(t, ctrl.Authenticate(context.Background()))

	// Email was entered and client-side validation was triggered.
	assert.Equal(t, "user@example.com", page.Filled(`input[type="email"]`))
	assert.Equal(t, []string{"input", "change", "blur"}, page.EventsFor(`input[type="email"]`))

	// Session persisted.
	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "auth_token", saved.Cookies[0].Name)

	// Consumed token cleared.
	_, ok, err := mb.Peek()
	require.NoError(t, err)
	assert.False(t, ok)
}

// Scenario: a valid persisted session short-circuits the machine without
// ever touching the hand-off slot.
func TestAuthenticate_SessionReuse(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(protectedURL, accountHTML)

	store := testStore(t)
	require.NoError(t, store.Save(&session.Session{Cookies: []session.Cookie{
		{Name: "auth_token", Value: "from-last-run", Domain: ".example.com", Path: "/"},
	}}))

	spy := &spyChannel{inner: magiclink.NewMailbox()}
	ctrl := NewController(page, store, spy, NewDetector(nil, nil, nil), testConfig(), nil)

	require.NoError(t, ctrl.Authenticate(context.Background()))
	assert.Zero(t, spy.peeks, "valid session must not read the hand-off slot")
	assert.Zero(t, spy.clears, "valid session must not clear the hand-off slot")

	// The stored cookies were imported into the page.
	cookies, err := page.Cookies()
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "from-last-run", cookies[0].Value)
}

// Scenario: the poll window elapses with no token ever written.
func TestAuthenticate_MagicLinkTimeout(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.SetRedirect(protectedURL, loginURL)

	mb := magiclink.NewMailbox()
	cfg := testConfig()
	cfg.LinkTimeout = 40 * time.Millisecond

	ctrl := NewController(page, testStore(t), mb, NewDetector(nil, nil, nil), cfg, nil)
	err := ctrl.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrMagicLinkTimeout)

	_, ok, peekErr := mb.Peek()
	require.NoError(t, peekErr)
	assert.False(t, ok, "slot must be left untouched on timeout")
}

// Scenario: the link navigates somewhere that still fails the authenticated
// predicate. The token must survive for a retry on the next run.
func TestAuthenticate_FailedConsumptionKeepsToken(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.SetRedirect(protectedURL, loginURL)
	page.SetRedirect(magicURL, loginURL) // expired link bounces back to login

	store := testStore(t)
	mb := magiclink.NewMailbox()
	mb.Put(magicURL)

	ctrl := NewController(page, store, mb, NewDetector(nil, nil, nil), testConfig(), nil)
	err := ctrl.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrMagicLinkAuthFailed)

	url, ok, peekErr := mb.Peek()
	require.NoError(t, peekErr)
	assert.True(t, ok, "token must remain for a subsequent attempt")
	assert.Equal(t, magicURL, url)

	saved, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, saved, "no session may be persisted on failed consumption")
}

func TestAuthenticate_LinkNavigationErrorIsFatal(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.SetRedirect(protectedURL, loginURL)
	// magicURL is not registered: link navigation fails outright.

	mb := magiclink.NewMailbox()
	mb.Put(magicURL)

	ctrl := NewController(page, testStore(t), mb, NewDetector(nil, nil, nil), testConfig(), nil)
	err := ctrl.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrMagicLinkAuthFailed)

	_, ok, _ := mb.Peek()
	assert.True(t, ok, "token survives a navigation failure during consumption")
}

func TestAuthenticate_NoEmailInput(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, `<html><body><h1>Sign in</h1><p>Use the app.</p></body></html>`)
	page.SetRedirect(protectedURL, loginURL)

	ctrl := NewController(page, testStore(t), magiclink.NewMailbox(), NewDetector(nil, nil, nil), testConfig(), nil)
	err := ctrl.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNoEmailInput)
}

func TestAuthenticate_SubmitNeverEnabled(t *testing.T) {
	html := `<html><body><h1>Sign in</h1><form>
		<input type="email" name="email">
		<button type="submit" disabled>Send magic link</button>
	</form></body></html>`

	page := browser.NewStaticPage()
	page.AddPage(loginURL, html)
	page.SetRedirect(protectedURL, loginURL)

	cfg := testConfig()
	cfg.SubmitPollAttempts = 3

	ctrl := NewController(page, testStore(t), magiclink.NewMailbox(), NewDetector(nil, nil, nil), cfg, nil)
	err := ctrl.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrSubmitNeverEnabled)
}

// The submit control enables a few polls after the synthetic events fire,
// the way client-side validation behaves on a real page.
func TestAuthenticate_SubmitEnablesAfterPolling(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.AddPage(protectedURL+"/", accountHTML)
	page.SetRedirect(protectedURL, loginURL)
	page.SetRedirect(magicURL, protectedURL+"/")
	page.EnableAfter(`button[type="submit"]`, 3)

	mb := magiclink.NewMailbox()
	mb.Put(magicURL)

	ctrl := NewController(page, testStore(t), mb, NewDetector(nil, nil, nil), testConfig(), nil)
	require.NoError(t, ctrl.Authenticate(context.Background()))
}

// orderedStore and orderedChannel record the relative order of persistence
// and token deletion.
type orderedStore struct {
	*session.FileStore
	order *[]string
}

func (s *orderedStore) Save(sess *session.Session) error {
	*s.order = append(*s.order, "save")
	return s.FileStore.Save(sess)
}

type orderedChannel struct {
	*magiclink.Mailbox
	order *[]string
}

func (c *orderedChannel) Clear() error {
	*c.order = append(*c.order, "clear")
	return c.Mailbox.Clear()
}

func TestAuthenticate_PersistsBeforeClearingToken(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(loginURL, welcomeHTML)
	page.AddPage(protectedURL+"/", accountHTML)
	page.SetRedirect(protectedURL, loginURL)
	page.SetRedirect(magicURL, protectedURL+"/")

	var order []string
	store := &orderedStore{FileStore: testStore(t), order: &order}
	mb := magiclink.NewMailbox()
	mb.Put(magicURL)
	channel := &orderedChannel{Mailbox: mb, order: &order}

	ctrl := NewController(page, store, channel, NewDetector(nil, nil, nil), testConfig(), nil)
	require.NoError(t, ctrl.Authenticate(context.Background()))

	require.Equal(t, []string{"save", "clear"}, order,
		"token deletion must happen strictly after persistence")
}

func TestCheckSession(t *testing.T) {
	page := browser.NewStaticPage()
	page.AddPage(protectedURL, accountHTML)

	ctrl := NewController(page, testStore(t), magiclink.NewMailbox(), NewDetector(nil, nil, nil), testConfig(), nil)
	assert.True(t, ctrl.CheckSession(context.Background()))

	// Same probe against a login bounce reports invalid.
	page2 := browser.NewStaticPage()
	page2.AddPage(loginURL, welcomeHTML)
	page2.SetRedirect(protectedURL, loginURL)

	ctrl2 := NewController(page2, testStore(t), magiclink.NewMailbox(), NewDetector(nil, nil, nil), testConfig(), nil)
	assert.False(t, ctrl2.CheckSession(context.Background()))
}
