package auth

import (
	"net/url"
	"strings"
)

// Default marker vocabulary for a booking-style account area. All lists are
// configuration data and can be replaced wholesale via the YAML profile.
var (
	DefaultPositiveMarkers = []string{
		"my bookings",
		"upcoming bookings",
		"your account",
		"booking history",
	}

	DefaultNegativeMarkers = []string{
		"sign in",
		"log in",
		"enter your email",
	}

	DefaultLoginPathHints = []string{
		"login",
		"signin",
		"sign-in",
		"auth",
	}
)

// Detector decides whether a page is in an authenticated, content-bearing
// state. Both conditions are required: at least one positive marker must be
// present and no negative marker may be, so a marketing page mentioning
// "booking" does not count and a slow page still showing a login shell does
// not either. Negative markers dominate.
type Detector struct {
	Positive       []string
	Negative       []string
	LoginPathHints []string
}

// NewDetector builds a detector, falling back to the default vocabulary for
// any empty list.
func NewDetector(positive, negative, loginHints []string) Detector {
	if len(positive) == 0 {
		positive = DefaultPositiveMarkers
	}
	if len(negative) == 0 {
		negative = DefaultNegativeMarkers
	}
	if len(loginHints) == 0 {
		loginHints = DefaultLoginPathHints
	}
	return Detector{Positive: positive, Negative: negative, LoginPathHints: loginHints}
}

// Authenticated applies the full predicate: not redirected to a login path,
// at least one positive marker, zero negative markers. Matching is
// case-insensitive substring over the page's visible text.
func (d Detector) Authenticated(pageURL, pageText string) bool {
	if d.OnLoginPath(pageURL) {
		return false
	}

	text := strings.ToLower(pageText)

	for _, marker := range d.Negative {
		if marker != "" && strings.Contains(text, strings.ToLower(marker)) {
			return false
		}
	}

	for _, marker := range d.Positive {
		if marker != "" && strings.Contains(text, strings.ToLower(marker)) {
			return true
		}
	}

	return false
}

// OnLoginPath reports whether the URL's path looks like a login page,
// indicating the protected navigation was redirected.
func (d Detector) OnLoginPath(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, hint := range d.LoginPathHints {
		if hint != "" && strings.Contains(path, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}
