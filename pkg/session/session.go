// Package session persists the cookie set that lets a browser page reach
// protected content across process restarts. No expiry metadata is enforced
// here; whether a stored session is still usable is decided empirically by
// probing a protected page.
package session

// Cookie is one stored cookie record. The serialized form is a plain JSON
// array of these objects, which is also the hand-off format for external
// tooling that wants to inspect or seed a session.
type Cookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Expires float64 `json:"expires,omitempty"`
}

// Session is the ordered cookie set captured after a successful login.
type Session struct {
	Cookies []Cookie
}

// IsEmpty reports whether the session carries no cookies at all.
func (s *Session) IsEmpty() bool {
	return s == nil || len(s.Cookies) == 0
}
