// Package textutil normalises free text coming from users and the language model.
package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean strips markup and surrounding whitespace. Entities escaped by the
// policy are turned back into plain characters since the result is stored as text.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
