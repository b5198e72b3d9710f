package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/osamusic/med-regulatory/internal/models"
)

// extractHTML strips markup and collects visible text depth-first, one
// trimmed line per text node. Title comes from <title>, else the URL.
func (e *Extractor) extractHTML(data []byte, srcURL string) Extraction {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		e.log.Warnw("html parse failed", "url", srcURL, "error", err)
		return Extraction{
			Text:          fmt.Sprintf("Failed to extract content from HTML at %s: %v", srcURL, err),
			OriginalTitle: srcURL,
			SourceType:    models.SourceHTML,
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = srcURL
	}

	doc.Find("script, style, noscript").Remove()

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	return Extraction{
		Text:          strings.Join(lines, "\n"),
		OriginalTitle: title,
		SourceType:    models.SourceHTML,
	}
}

// extractConverted routes office formats through docconv.
func (e *Extractor) extractConverted(data []byte, contentType, srcURL string) (Extraction, error) {
	res, err := convertBytes(data, contentType)
	if err != nil {
		return Extraction{}, err
	}
	if strings.TrimSpace(res) == "" {
		return Extraction{}, fmt.Errorf("empty conversion result for %s", contentType)
	}
	return Extraction{
		Text:          res,
		OriginalTitle: lastURLSegment(srcURL),
		SourceType:    models.SourceOther,
	}, nil
}
