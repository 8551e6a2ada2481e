// ABOUTME: HTML content selectors that pick readable elements in document order, nested ones on their own
// ABOUTME: Supports inline documents, fetched pages and readability-extracted articles

package readaloud

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/netguard"
)

const (
	readableQuery = "h1, h2, h3, h4, p, label, .stat-value, .scan-label, span.readable, [data-readable]"
	excludedQuery = "nav, button, [role=navigation], [role=button], a, select, textarea"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	plainID    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// HTMLSelector selects readable elements from a parsed HTML document
type HTMLSelector struct {
	doc *goquery.Document
}

// NewHTMLSelector parses an HTML document or fragment
func NewHTMLSelector(r io.Reader) (*HTMLSelector, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &errors.ValidationError{Field: "html", Message: err.Error()}
	}
	return &HTMLSelector{doc: doc}, nil
}

// NewHTMLSelectorFromString parses HTML held in a string
func NewHTMLSelectorFromString(s string) (*HTMLSelector, error) {
	return NewHTMLSelector(strings.NewReader(s))
}

// Readable returns the qualifying elements in document order
func (s *HTMLSelector) Readable(ctx context.Context) ([]ReadableElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type candidate struct {
		node *html.Node
		text string
	}
	var candidates []candidate
	kept := make(map[*html.Node]bool)

	s.doc.Find(readableQuery).Each(func(_ int, sel *goquery.Selection) {
		if sel.Closest(excludedQuery).Length() > 0 {
			return
		}
		text := collapse(sel.Text())
		if utf8.RuneCountInString(text) <= 1 {
			return
		}
		node := sel.Get(0)
		candidates = append(candidates, candidate{node: node, text: text})
		kept[node] = true
	})

	out := make([]ReadableElement, 0, len(candidates))
	for _, c := range candidates {
		// nested candidates are read on their own, the outer one keeps
		// only the text around them
		if containsKept(c.node, kept) {
			c.text = ownText(c.node, kept)
			if utf8.RuneCountInString(c.text) <= 1 {
				continue
			}
		}
		out = append(out, ReadableElement{
			Index: len(out),
			Tag:   c.node.Data,
			Path:  cssPath(c.node),
			Text:  c.text,
		})
	}
	return out, nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// containsKept reports whether any descendant of n is itself a kept candidate
func containsKept(n *html.Node, kept map[*html.Node]bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if kept[c] || containsKept(c, kept) {
			return true
		}
	}
	return false
}

// ownText collects the text of n that lies outside kept descendants
func ownText(n *html.Node, kept map[*html.Node]bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case kept[c]:
				b.WriteByte(' ')
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return collapse(b.String())
}

func cssPath(n *html.Node) string {
	var parts []string
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id := attr(n, "id"); plainID.MatchString(id) {
			parts = append(parts, "#"+id)
			break
		}
		if n.Data == "html" || n.Data == "body" {
			parts = append(parts, n.Data)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", n.Data, nthOfType(n)))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func nthOfType(n *html.Node) int {
	k := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			k++
		}
	}
	return k
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// URLSelector fetches a page when selection runs. With Article set the
// page is first reduced to its main article by readability. Only public
// hosts are fetched; HTTP should dial through a guarded transport so names
// resolving to internal addresses are refused as well.
type URLSelector struct {
	HTTP    interfaces.HTTPClient
	URL     string
	Article bool
}

// Readable fetches the page and selects from it
func (s URLSelector) Readable(ctx context.Context) ([]ReadableElement, error) {
	pageURL, err := url.Parse(s.URL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, &errors.ValidationError{Field: "url", Message: "url must be an absolute http(s) URL"}
	}
	if err := netguard.CheckHost(pageURL.Hostname()); err != nil {
		return nil, &errors.ValidationError{Field: "url", Message: "url must point to a public host"}
	}
	if s.HTTP == nil {
		return nil, &errors.UnavailableError{Service: "http client", Reason: "not configured"}
	}

	resp, err := s.HTTP.Get(ctx, s.URL)
	if err != nil {
		if stderrors.Is(err, netguard.ErrBlocked) {
			return nil, &errors.ValidationError{Field: "url", Message: "url must point to a public host"}
		}
		return nil, err
	}
	defer resp.Body().Close()
	if resp.StatusCode() != 200 {
		return nil, &errors.ExternalAPIError{API: "page fetch", StatusCode: resp.StatusCode(), Message: s.URL}
	}

	if !s.Article {
		sel, err := NewHTMLSelector(resp.Body())
		if err != nil {
			return nil, err
		}
		return sel.Readable(ctx)
	}

	article, err := readability.FromReader(resp.Body(), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	var doc strings.Builder
	if title := strings.TrimSpace(article.Title); title != "" {
		doc.WriteString("<h1>")
		doc.WriteString(html.EscapeString(title))
		doc.WriteString("</h1>")
	}
	doc.WriteString(article.Content)

	sel, err := NewHTMLSelectorFromString(doc.String())
	if err != nil {
		return nil, err
	}
	return sel.Readable(ctx)
}
