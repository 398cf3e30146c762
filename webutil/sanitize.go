package webutil

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText trims s, strips any markup and HTML-escapes what is left.
func SanitizeText(s string) string {
	return strictPolicy.Sanitize(strings.TrimSpace(s))
}
