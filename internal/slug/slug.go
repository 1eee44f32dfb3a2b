// Package slug builds URL-safe identifiers for catalog items.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make joins parts into a lowercase ASCII slug. Diacritics are folded to
// their base letter and every other run of non-alphanumeric characters
// becomes a single hyphen.
func Make(parts ...string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	var b strings.Builder
	pendingHyphen := false
	for _, part := range parts {
		folded, _, err := transform.String(t, part)
		if err != nil {
			folded = part
		}
		for _, r := range strings.ToLower(folded) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				if pendingHyphen && b.Len() > 0 {
					b.WriteByte('-')
				}
				pendingHyphen = false
				b.WriteRune(r)
			default:
				pendingHyphen = true
			}
		}
		pendingHyphen = true
	}
	return b.String()
}
