package auth

import "testing"

func TestDetector_Authenticated(t *testing.T) {
	d := NewDetector(nil, nil, nil)

	tests := []struct {
		name string
		url  string
		text string
		want bool
	}{
		{
			name: "positive marker, no negative",
			url:  "https://example.com/account",
			text: "Welcome back. My bookings are listed below.",
			want: true,
		},
		{
			name: "negative marker dominates positive",
			url:  "https://example.com/account",
			text: "My bookings — please sign in to continue",
			want: false,
		},
		{
			name: "marketing copy without account vocabulary",
			url:  "https://example.com/",
			text: "Booking with us is easy and fun!",
			want: false,
		},
		{
			name: "login redirect rejected regardless of text",
			url:  "https://example.com/login?next=/account",
			text: "My bookings",
			want: false,
		},
		{
			name: "sign-in path hint rejected",
			url:  "https://example.com/auth/callback",
			text: "My bookings",
			want: false,
		},
		{
			name: "case-insensitive matching",
			url:  "https://example.com/account",
			text: "MY BOOKINGS",
			want: true,
		},
		{
			name: "empty page",
			url:  "https://example.com/account",
			text: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Authenticated(tt.url, tt.text); got != tt.want {
				t.Errorf("Authenticated(%q, %q) = %v, want %v", tt.url, tt.text, got, tt.want)
			}
		})
	}
}

func TestDetector_CustomVocabulary(t *testing.T) {
	d := NewDetector([]string{"mes réservations"}, []string{"connexion"}, []string{"connexion"})

	if !d.Authenticated("https://example.fr/compte", "Mes réservations à venir") {
		t.Error("custom positive marker should match")
	}
	if d.Authenticated("https://example.fr/compte", "Mes réservations — Connexion requise") {
		t.Error("custom negative marker should dominate")
	}
}

func TestDetector_OnLoginPath(t *testing.T) {
	d := NewDetector(nil, nil, nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/login", true},
		{"https://example.com/auth/magic", true},
		{"https://example.com/sign-in", true},
		{"https://example.com/account/bookings", false},
		{"https://example.com/", false},
		// Hints match the path only, not the query.
		{"https://example.com/account?from=login", false},
	}

	for _, tt := range tests {
		if got := d.OnLoginPath(tt.url); got != tt.want {
			t.Errorf("OnLoginPath(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
