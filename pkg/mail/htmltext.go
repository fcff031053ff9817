package mail

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy removes all markup, leaving text content only.
var stripPolicy = bluemonday.StrictPolicy()

// plainTextFallbackLimit caps the synthesized fallback body.
const plainTextFallbackLimit = 500

// PlainTextFallback derives a plain-text body from an HTML body for clients
// that cannot render HTML. Markup is stripped, entities are unescaped,
// whitespace is collapsed and the result is truncated to 500 characters.
func PlainTextFallback(htmlBody string) string {
	text := stripPolicy.Sanitize(htmlBody)
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > plainTextFallbackLimit {
		text = string(runes[:plainTextFallbackLimit])
	}
	return text
}
