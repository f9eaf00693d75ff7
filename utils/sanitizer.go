package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all markup
	StrictPolicy *bluemonday.Policy
	// UGCPolicy for rich text bodies, templates and signatures
	UGCPolicy *bluemonday.Policy

	brTag = regexp.MustCompile(`(?i)<br\s*/?>`)
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	UGCPolicy = bluemonday.UGCPolicy()

	UGCPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	UGCPolicy.AllowElements("strong", "em", "u", "s", "code", "pre")
	UGCPolicy.AllowElements("ul", "ol", "li")
	UGCPolicy.AllowElements("blockquote")
	UGCPolicy.AllowElements("a", "img")
	UGCPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	UGCPolicy.AllowAttrs("href").OnElements("a")
	UGCPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	UGCPolicy.AllowAttrs("class").Globally()
	UGCPolicy.AllowAttrs("style").OnElements("span", "div", "p")

	UGCPolicy.RequireParseableURLs(true)
	UGCPolicy.AllowURLSchemes("http", "https", "mailto")
}

// SanitizeHTML sanitizes rich content for display
func SanitizeHTML(content string) string {
	return UGCPolicy.Sanitize(content)
}

// StripHTML removes all tags and decodes entities, leaving plain text
func StripHTML(content string) string {
	return html.UnescapeString(StrictPolicy.Sanitize(content))
}

// HTMLToText converts rich content to plain text: <br> becomes a newline,
// every other tag is dropped.
func HTMLToText(content string) string {
	return StripHTML(brTag.ReplaceAllString(content, "\n"))
}

// TextToHTML escapes plain text and turns newlines into <br>
func TextToHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// Preview returns the first limit characters of text followed by "..."
func Preview(text string, limit int) string {
	if limit <= 0 {
		return "..."
	}
	if utf8.RuneCountInString(text) <= limit {
		return text + "..."
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
