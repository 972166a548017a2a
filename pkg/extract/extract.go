// Package extract turns a page's HTML into a PAGE_SCRAPED snapshot: title and
// meta tags become metadata, and the sanitized document becomes markdown.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/grovetools/sessionlink/pkg/profiling"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Fetcher returns the current page URL and HTML.
type Fetcher func(ctx context.Context) (url string, body []byte, err error)

// FileFetcher reads the page HTML from a file on every call.
func FileFetcher(path, url string) Fetcher {
	return func(ctx context.Context) (string, []byte, error) {
		body, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("read page %s: %w", path, err)
		}
		return url, body, nil
	}
}

// HTML extracts snapshots from fetched HTML.
type HTML struct {
	fetch  Fetcher
	policy *bluemonday.Policy
	conv   *converter.Converter
	clock  clockwork.Clock
}

func NewHTML(fetch Fetcher, clock clockwork.Clock) *HTML {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HTML{
		fetch:  fetch,
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		clock: clock,
	}
}

func (h *HTML) Extract(ctx context.Context) (protocol.PageScraped, error) {
	defer profiling.Start("extract").Stop()
	url, body, err := h.fetch(ctx)
	if err != nil {
		return protocol.PageScraped{}, err
	}
	return h.Parse(url, body)
}

// Parse builds a snapshot from raw HTML.
func (h *HTML) Parse(url string, body []byte) (protocol.PageScraped, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return protocol.PageScraped{}, fmt.Errorf("parse html: %w", err)
	}
	title, meta := readHead(doc)

	clean := h.policy.SanitizeBytes(body)
	content, err := h.conv.ConvertString(string(clean), converter.WithDomain(url))
	if err != nil {
		return protocol.PageScraped{}, fmt.Errorf("convert to markdown: %w", err)
	}

	return protocol.PageScraped{
		URL:       url,
		Title:     title,
		Content:   strings.TrimSpace(content),
		Metadata:  meta,
		Timestamp: protocol.Now(h.clock.Now()),
	}, nil
}

// readHead collects the document title, <meta name|property> values, the
// canonical link and the document language.
func readHead(doc *html.Node) (string, map[string]string) {
	var title string
	meta := map[string]string{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if lang := attr(n, "lang"); lang != "" {
					meta["lang"] = lang
				}
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				key := attr(n, "name")
				if key == "" {
					key = attr(n, "property")
				}
				if key != "" {
					meta[strings.ToLower(key)] = attr(n, "content")
				}
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") {
					meta["canonical"] = attr(n, "href")
				}
			case "body":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, meta
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
