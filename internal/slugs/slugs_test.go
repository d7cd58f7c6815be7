package slugs

import "testing"

func TestURLSlug(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"http://www.worldwidetelescope.org/wwtweb/dss.aspx?q={1},{2},{3}", 0, "www-worldwidetelescope-org-wwtweb-dss-aspx-q-1-2-3"},
		{"https://example.org/M51/", 64, "example-org-m51"},
		{"https://example.org/abcdef", 13, "example-org-a"},
		{"https://example.org/abc-def", 15, "example-org-abc"},
		{"://", 10, "record"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := URLSlug(tt.in, tt.max); got != tt.want {
				t.Fatalf("URLSlug(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sky", "sky"},
		{"HydrogenAlpha", "hydrogenalpha"},
		{"Mars 2", "mars2"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Token(tt.in); got != tt.want {
				t.Fatalf("Token(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
