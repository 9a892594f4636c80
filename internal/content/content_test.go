package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainTextStripsTags(t *testing.T) {
	assert.Equal(t, "Summit day", PlainText("  <b>Summit</b> day<script>alert(1)</script> "))
	assert.Equal(t, "Tents & Stoves", PlainText("Tents & Stoves"))
	assert.Equal(t, "", PlainText("<img src=x onerror=alert(1)>"))
}

func TestPlainTextDecodesBeforeStripping(t *testing.T) {
	cases := map[string]string{
		"&lt;script&gt;alert(1)&lt;/script&gt;":      "",
		"Broad Peak &lt;b&gt;diary&lt;/b&gt;":        "Broad Peak diary",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;": "",
		"5 &lt; 6 &amp; K2":                          "5 < 6 & K2",
	}
	for in, want := range cases {
		got := PlainText(in)
		assert.Equal(t, want, got, in)
		assert.NotContains(t, got, "<script")
		assert.Equal(t, got, PlainText(got), "stable for %q", in)
	}
	assert.Equal(t, []string{"k2"}, CleanList([]string{"&lt;script&gt;x&lt;/script&gt;", "k2"}))
}

func TestCleanListDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"k2", "karakoram"}, CleanList([]string{"k2", "<i></i>", " karakoram "}))
	assert.Equal(t, []string{}, CleanList(nil))
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# Day 1\n\nReached **Concordia**\nat dusk")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>Concordia</strong>")
	assert.Contains(t, out, "<br")
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out := RenderMarkdown("hello <script>alert('x')</script>\n\n[link](javascript:alert(1))")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}
