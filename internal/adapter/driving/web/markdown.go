package web

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	captionRenderer  goldmark.Markdown
	captionSanitizer *bluemonday.Policy
)

func init() {
	// Captions are short user text: line breaks are kept as typed, and
	// links become clickable but never pass referrer or ranking.
	captionRenderer = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	captionSanitizer = bluemonday.UGCPolicy()
	captionSanitizer.RequireNoFollowOnLinks(true)
	captionSanitizer.RequireNoReferrerOnLinks(true)
	captionSanitizer.AddTargetBlankToFullyQualifiedLinks(true)
}

// RenderMarkdown converts a post caption written in Markdown to sanitized
// HTML. Returns empty string for empty or whitespace-only input.
func RenderMarkdown(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := captionRenderer.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}

	return captionSanitizer.Sanitize(buf.String())
}
