package git

import (
	"path/filepath"
	"strings"
)

const upperhex = "0123456789ABCDEF"

func escapeByte(b *strings.Builder, c byte) {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		b.WriteByte(c)
	case c == ' ':
		b.WriteByte('+')
	default:
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
}

// EscapeRepoURL percent-escapes url into a filename-safe form.
// Alphanumerics, '-' and '_' pass through, space becomes '+'.
// The escape alphabet is an on-disk contract: changing it orphans every
// existing cache directory.
func EscapeRepoURL(url string) string {
	b := new(strings.Builder)
	b.Grow(len(url) + 16)
	for i := 0; i < len(url); i++ {
		escapeByte(b, url[i])
	}
	return b.String()
}

// StoragePath derives the bare-cache directory for url under root.
func StoragePath(root, url string) string {
	return filepath.Join(root, EscapeRepoURL(url))
}
