// internal/app/system/render/render.go

// Package render converts raw discussion bodies (Markdown) to sanitized
// HTML. Sanitization is allow-list based; anything outside the list is
// reduced to its text content. Rendering is pure and idempotent on
// already-sanitized input.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns Markdown bodies into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var (
	defaultRenderer *Renderer
	defaultOnce     sync.Once

	imgSrcRe = regexp.MustCompile(`(?i)^https?://`)
)

// Default returns the shared renderer. The goldmark parser and the
// bluemonday policy never change after construction and both are safe
// for concurrent use.
func Default() *Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = New()
	})
	return defaultRenderer
}

// New builds a renderer with the discussion allow-list.
func New() *Renderer {
	// Raw HTML passes through goldmark untouched so that rendering an
	// already-rendered body is a no-op; bluemonday does the filtering.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)

	p := bluemonday.NewPolicy()
	p.AllowElements(
		// Base formatting set.
		"a", "b", "blockquote", "code", "em", "i", "li", "ol", "strong", "ul",
		// Discussion additions.
		"br", "dd", "del", "dl", "dt", "h1", "h2", "h3", "h4", "hr", "img",
		"kbd", "p", "pre", "s", "strike", "sub", "sup",
		"table", "thead", "th", "tbody", "tr", "td", "tfoot",
	)
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	// ftp is a link-only scheme: image sources must be http(s).
	p.AllowAttrs("src").Matching(imgSrcRe).OnElements("img")
	p.AllowAttrs("alt", "title", "width", "height").OnElements("img")
	p.AllowURLSchemes("http", "https", "ftp")
	p.RequireParseableURLs(true)

	return &Renderer{md: md, policy: p}
}

// Render converts Markdown to sanitized HTML.
func (r *Renderer) Render(rawBody string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(rawBody), &buf); err != nil {
		// Conversion of arbitrary text does not fail in practice; fall
		// back to sanitizing the raw input.
		return strings.TrimSpace(r.policy.Sanitize(rawBody))
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String()))
}

// RenderScrubbed renders rawBody and then removes links and mentions of
// the given spam domains: matching anchors are unwrapped to their text
// and raw-text occurrences are stripped. If anything was scrubbed and
// replacementBody is non-empty, the whole body becomes replacementBody.
func (r *Renderer) RenderScrubbed(rawBody string, spamDomains []string, replacementBody string) (string, bool) {
	html := r.Render(rawBody)
	if len(spamDomains) == 0 {
		return html, false
	}

	scrubbed := false
	for _, domain := range spamDomains {
		out, changed := scrubDomain(html, domain)
		if changed {
			scrubbed = true
			html = out
		}
	}
	if scrubbed && replacementBody != "" {
		return replacementBody, true
	}
	return html, scrubbed
}

// scrubDomain unwraps anchors pointing at domain and strips raw-text
// URLs mentioning it.
func scrubDomain(html, domain string) (string, bool) {
	quoted := regexp.QuoteMeta(domain)
	changed := false

	// <a ... href="...domain...">text</a> -> text
	anchorRe := regexp.MustCompile(fmt.Sprintf(
		`(?is)<a\b[^>]*href="[^"]*%s[^"]*"[^>]*>(.*?)</a>`, quoted))
	if anchorRe.MatchString(html) {
		html = anchorRe.ReplaceAllString(html, "$1")
		changed = true
	}

	// Bare URLs and bare mentions of the domain in text.
	textRe := regexp.MustCompile(fmt.Sprintf(
		`(?i)(?:[a-z][a-z0-9+.-]*://)?[^\s"<>]*%s[^\s"<>]*`, quoted))
	if textRe.MatchString(html) {
		html = textRe.ReplaceAllString(html, "")
		changed = true
	}

	return html, changed
}
