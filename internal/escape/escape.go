// Package escape makes strings safe to splice into hand-built HTML such as
// notification emails.
package escape

import "strings"

// The ampersand goes first so the entities added for the other characters
// are not escaped a second time.
var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// HTML escapes the five HTML metacharacters. Everything else, including
// multi-byte text, is returned unchanged.
func HTML(input string) string {
	if input == "" {
		return input
	}
	return htmlReplacer.Replace(input)
}
