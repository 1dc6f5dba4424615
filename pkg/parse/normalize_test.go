package parse

import (
	"net/url"
	"testing"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := ParseBaseURL(raw)
	if err != nil {
		t.Fatalf("ParseBaseURL(%q): %v", raw, err)
	}
	return u
}

func TestResolveLink(t *testing.T) {
	base := mustBase(t, "http://forum.overclockers.ua")

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{
			name:     "DotSlashRelative",
			href:     "./viewtopic.php?f=26&t=123",
			expected: "http://forum.overclockers.ua/viewtopic.php?f=26&t=123",
		},
		{
			name:     "BareRelative",
			href:     "viewtopic.php?t=5",
			expected: "http://forum.overclockers.ua/viewtopic.php?t=5",
		},
		{
			name:     "RootRelative",
			href:     "/viewtopic.php?t=5",
			expected: "http://forum.overclockers.ua/viewtopic.php?t=5",
		},
		{
			name:     "AlreadyAbsolute",
			href:     "https://other.example/viewtopic.php?t=9",
			expected: "https://other.example/viewtopic.php?t=9",
		},
		{
			name:     "FragmentDropped",
			href:     "./viewtopic.php?t=7#p100",
			expected: "http://forum.overclockers.ua/viewtopic.php?t=7",
		},
		{
			name:     "SurroundingWhitespace",
			href:     "  ./viewtopic.php?t=8 ",
			expected: "http://forum.overclockers.ua/viewtopic.php?t=8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLink(base, tt.href)
			if err != nil {
				t.Fatalf("ResolveLink(%q) error: %v", tt.href, err)
			}
			if got != tt.expected {
				t.Errorf("ResolveLink(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}
}

func TestResolveLink_BaseWithPath(t *testing.T) {
	// Listing pages live under a query path; links still resolve from the forum root
	base := mustBase(t, "http://forum.overclockers.ua/viewforum.php?f=26")

	got, err := ResolveLink(base, "./viewtopic.php?t=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://forum.overclockers.ua/viewtopic.php?t=1" {
		t.Errorf("got %q", got)
	}
}

func TestResolveLink_Errors(t *testing.T) {
	base := mustBase(t, "http://forum.overclockers.ua")

	for _, href := range []string{"", "   ", "mailto:someone@example.com", "javascript:void(0)"} {
		if _, err := ResolveLink(base, href); err == nil {
			t.Errorf("ResolveLink(%q) expected error", href)
		}
	}
	if _, err := ResolveLink(nil, "./viewtopic.php"); err == nil {
		t.Error("expected error for nil base")
	}
}

func TestParseBaseURL_Rejects(t *testing.T) {
	for _, raw := range []string{"", "forum.overclockers.ua", "/viewforum.php"} {
		if _, err := ParseBaseURL(raw); err == nil {
			t.Errorf("ParseBaseURL(%q) expected error", raw)
		}
	}
}
