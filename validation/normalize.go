package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizer strips markup from free text fields before they are validated and stored.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{policy: bluemonday.StrictPolicy()}
}

// text removes tags, collapses whitespace and undoes the entity escaping bluemonday applies,
// leaving escaping to the templates.
func (s *sanitizer) text(v string) string {
	clean := html.UnescapeString(s.policy.Sanitize(v))
	return strings.Join(strings.Fields(clean), " ")
}

func email(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Digits keeps only 0-9, so "12.345.678/0001-90" and "(11) 98765-4321" normalize to their digits.
func Digits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func domain(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	v = strings.TrimPrefix(v, "www.")
	return strings.TrimSuffix(v, "/")
}
