package utils

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
	lower   = cases.Lower(language.Und)
)

// Slugify lower-cases s and replaces every run of characters outside
// [a-z0-9] with a single hyphen.  Accented letters are not folded, so
// "Léger" becomes "l-ger".  Leading and trailing hyphens are kept, so
// "Ice Axe" and " Ice Axe" map to different slugs.
func Slugify(s string) string {
	return nonSlug.ReplaceAllString(lower.String(s), "-")
}
