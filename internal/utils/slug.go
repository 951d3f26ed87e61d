package utils

import (
	"strings"
	"unicode"
)

// Slugify lowercases the input and reduces it to hyphen-separated runs of
// letters and digits. Anything else collapses into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// ShortID returns a short stable prefix of an identifier, handy for making
// derived names unique without carrying the whole UUID around.
func ShortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
