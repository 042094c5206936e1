package auth

import "errors"

// Classified fatal errors for one authentication run. Callers distinguish
// them with errors.Is; message formatting around them is not a contract.
var (
	// ErrNoEmailInput: no selection heuristic located an email-capable
	// input on the login page. Indicates a site change or misconfiguration.
	ErrNoEmailInput = errors.New("no email input found")

	// ErrSubmitNeverEnabled: the submit control never became enabled within
	// the bounded polling window.
	ErrSubmitNeverEnabled = errors.New("submit control never became enabled")

	// ErrMagicLinkTimeout: no link appeared in the hand-off slot before the
	// poll ceiling elapsed. The slot is left in whatever state it was in.
	ErrMagicLinkTimeout = errors.New("timed out waiting for magic link")

	// ErrMagicLinkAuthFailed: visiting the link did not produce an
	// authenticated page. The token is left in place so a transient failure
	// does not burn the single-use link.
	ErrMagicLinkAuthFailed = errors.New("magic link authentication failed")
)
