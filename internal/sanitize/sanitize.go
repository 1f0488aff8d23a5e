// Package sanitize strips markup from user input before it is stored.
//
// Output is still escaped by the templates; this is the input side of the
// defence and protects rendering paths that skip escaping.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	richPolicy   = newRichPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "br", "p", "ul", "ol", "li", "h2", "h3", "h4")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowStandardURLs()
	return p
}

// Strict removes every tag and returns trimmed plain text. The policy encodes
// the text it keeps, so entities are decoded again; escaping is left to the
// output side. An empty input is returned as is.
func Strict(input string) string {
	if input == "" {
		return input
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// Rich keeps basic formatting tags (b, i, em, strong, br, p, ul, ol, li, h2-h4
// and links with href/target/rel only) and drops everything else.
func Rich(input string) string {
	if input == "" {
		return input
	}
	return strings.TrimSpace(richPolicy.Sanitize(input))
}

// Map returns a shallow copy of in with every string value passed through
// Strict. Nested values are copied by reference and left untouched.
func Map(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = Strict(s)
			continue
		}
		out[k] = v
	}
	return out
}

// Phone reduces a phone number to its digits, keeping one leading plus. It is
// used to build rate-limit keys so formatting cannot split a bucket.
func Phone(input string) string {
	input = strings.TrimSpace(input)
	var b strings.Builder
	for i, r := range input {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Email lowercases and trims an address. Addresses are validated, never
// stripped, so a quote in the local part survives.
func Email(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Slug lowercases and trims a URL slug.
func Slug(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
