package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/osamusic/med-regulatory/internal/models"
)

// extractPDF pulls per-page text, wrapping each page in [PAGE_n]
// delimiters so the splitter can recover page boundaries, and walks the
// embedded outline into a TOC when one exists. The pdf library panics
// on some malformed files, so the whole thing runs behind a recover and
// degrades to placeholder text.
func (e *Extractor) extractPDF(data []byte, srcURL string) (ex Extraction) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("pdf extraction panic", "url", srcURL, "panic", r)
			ex = pdfFailure(srcURL, fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.log.Errorw("pdf open failed", "url", srcURL, "error", err)
		return pdfFailure(srcURL, err)
	}

	pages := make([]string, 0, reader.NumPage())
	var content strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		var text string
		if !page.V.IsNull() {
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			}
		}
		pages = append(pages, text)
		// Page markers are zero-based, matching the split policy.
		fmt.Fprintf(&content, "[PAGE_%d]\n%s\n[/PAGE_%d]\n", i-1, text, i-1)
	}

	text := content.String()
	if strings.TrimSpace(stripPageMarkers(text)) == "" {
		e.log.Warnw("no extractable text in pdf", "url", srcURL)
		text = fmt.Sprintf("PDF from %s appears to contain no extractable text", srcURL)
	}

	title := pdfMetaTitle(reader)
	if title == "" {
		title = lastURLSegment(srcURL)
	}

	return Extraction{
		Text:          text,
		TOC:           e.extractTOC(reader, pages),
		OriginalTitle: title,
		SourceType:    models.SourcePDF,
	}
}

func pdfFailure(srcURL string, err error) Extraction {
	return Extraction{
		Text:          fmt.Sprintf("Failed to extract content from PDF at %s: %v", srcURL, err),
		OriginalTitle: lastURLSegment(srcURL),
		SourceType:    models.SourcePDF,
	}
}

func pdfMetaTitle(reader *pdf.Reader) string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

// stripPageMarkers removes the [PAGE_n] wrappers for emptiness checks.
func stripPageMarkers(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[PAGE_") || strings.HasPrefix(trimmed, "[/PAGE_") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// outlineItem is one flattened outline node.
type outlineItem struct {
	Title string
	Level int
}

// extractTOC flattens the outline tree and maps it onto page text.
func (e *Extractor) extractTOC(reader *pdf.Reader, pages []string) []models.TocEntry {
	outline := reader.Outline()
	if len(outline.Child) == 0 {
		return nil
	}

	var items []outlineItem
	var walk func(nodes []pdf.Outline, level int)
	walk = func(nodes []pdf.Outline, level int) {
		for _, node := range nodes {
			if title := strings.TrimSpace(node.Title); title != "" {
				items = append(items, outlineItem{Title: title, Level: level})
			}
			walk(node.Child, level+1)
		}
	}
	walk(outline.Child, 1)

	entries := attributeTOC(items, pages)
	if len(entries) == 0 {
		return nil
	}
	e.log.Infow("pdf outline extracted", "entries", len(entries))
	return entries
}

// attributeTOC attributes each outline item to the first page (searching
// forward from the previous hit) whose text contains the item title. A
// page's text is attached to at most one entry: later entries landing on
// an already-attributed page keep the page number but empty text, so no
// page is chunked twice downstream.
func attributeTOC(items []outlineItem, pages []string) []models.TocEntry {
	var entries []models.TocEntry
	seen := make(map[int]bool)
	cursor := 0

	for _, item := range items {
		pageNum := findTitlePage(pages, item.Title, cursor)
		entry := models.TocEntry{Level: item.Level, Title: item.Title, PageNum: pageNum}
		if pageNum >= 0 {
			cursor = pageNum
			if !seen[pageNum] {
				entry.Text = pages[pageNum]
				seen[pageNum] = true
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// findTitlePage scans pages from `from` onward for the title text,
// falling back to a full scan, then to -1 when the title never appears.
func findTitlePage(pages []string, title string, from int) int {
	needle := strings.ToLower(collapseSpaces(title))
	for i := from; i < len(pages); i++ {
		if strings.Contains(strings.ToLower(collapseSpaces(pages[i])), needle) {
			return i
		}
	}
	for i := 0; i < from && i < len(pages); i++ {
		if strings.Contains(strings.ToLower(collapseSpaces(pages[i])), needle) {
			return i
		}
	}
	return -1
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
