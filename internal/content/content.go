// Package content cleans user-authored community text and renders post
// bodies from markdown to HTML.
package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

var (
	plain = bluemonday.StrictPolicy()
	ugc   = bluemonday.UGCPolicy()

	// Raw HTML inside markdown is omitted by goldmark (WithUnsafe is not
	// set) and the output still passes through the UGC policy.
	md = goldmark.New(
		goldmark.WithRendererOptions(
			goldmarkHTML.WithHardWraps(),
		),
	)
)

// plainPasses bounds how many decode/strip rounds PlainText runs before
// giving up on a stable result.
const plainPasses = 8

// PlainText removes every tag from s and trims surrounding whitespace.
// Entities are decoded so "Tents & Stoves" round-trips unchanged, and the
// strip is repeated until the text stops changing so entity-encoded markup
// cannot come back as a live tag.
func PlainText(s string) string {
	out := strings.TrimSpace(s)
	for i := 0; i < plainPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(plain.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	// Still changing: hand back the escaped form rather than decoded text.
	return strings.TrimSpace(plain.Sanitize(out))
}

// CleanList applies PlainText to each entry and drops the empty ones.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := PlainText(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// RenderMarkdown converts a post body to sanitised HTML.  On a conversion
// error the escaped source is returned.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return ugc.Sanitize(buf.String())
}
