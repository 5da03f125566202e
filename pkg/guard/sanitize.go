package guard

import (
	"html"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile("[\x00-\x08\x0b-\x0c\x0e-\x1f\x7f]")

// Sanitize HTML-escapes the text, strips control characters and trims
// surrounding whitespace. It is applied to text returned to the caller,
// not to text forwarded between internal services.
//
// Input is unescaped before escaping so that already-sanitized text passes
// through unchanged: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	sanitized := html.EscapeString(html.UnescapeString(text))
	sanitized = controlChars.ReplaceAllString(sanitized, "")
	return strings.TrimSpace(sanitized)
}
