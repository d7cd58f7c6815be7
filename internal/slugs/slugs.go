// Package slugs derives stable, file-system safe names from record keys.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// URLSlug converts a URL to a slug suitable for a file name component.
//
// The scheme is dropped, the remainder is slugged with gosimple/slug, and the
// result is truncated to max bytes without leaving a trailing dash. An empty
// result falls back to "record".
func URLSlug(url string, max int) string {
	if _, rest, ok := strings.Cut(url, "://"); ok {
		url = rest
	}
	s := goslug.Make(url)
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	s = strings.TrimRight(s, "-_")
	if s == "" {
		return "record"
	}
	return s
}

// Token lower-cases s and keeps only ASCII letters and digits. It is used for
// routing attributes such as data set types and band passes.
func Token(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
