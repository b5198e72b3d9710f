package splitter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/osamusic/med-regulatory/internal/models"
)

// DocID derives the deterministic document identifier for a source URL.
// Same URL, same ID: re-crawls update in place instead of duplicating.
func DocID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the identifier for split part i of a source URL.
func ChunkID(url string, i int) string {
	return DocID(fmt.Sprintf("%s_%d", url, i))
}

var pageEndMarker = regexp.MustCompile(`\[/PAGE_\d+\]\n`)

// Split partitions content into ordered, named chunks no larger than
// maxSize, choosing a structure-aware strategy per source type. A
// single atomic unit (TOC section, page, paragraph) that already
// exceeds the budget is emitted oversized rather than cut mid-unit;
// only the untyped fallback slices blindly.
func Split(content string, sourceType models.SourceType, maxSize int, title string, toc []models.TocEntry) []models.Chunk {
	switch {
	case sourceType == models.SourcePDF && len(toc) > 0:
		return splitByTOC(content, maxSize, toc)
	case sourceType == models.SourcePDF:
		return splitByPages(content, maxSize, title)
	case sourceType == models.SourceHTML:
		return splitByParagraphs(content, maxSize, title)
	default:
		return splitFixed(content, maxSize, title)
	}
}

// splitByTOC folds top-level TOC entries into chapters (each chapter's
// text is the concatenation of its own sections' page text) and then
// sub-splits any chapter still over budget on paragraph boundaries.
func splitByTOC(content string, maxSize int, toc []models.TocEntry) []models.Chunk {
	type chapter struct {
		title   string
		content string
	}

	var chapters []chapter
	var current *chapter
	for _, entry := range toc {
		if entry.Level == 1 {
			if current != nil {
				chapters = append(chapters, *current)
			}
			current = &chapter{
				title:   entry.Title,
				content: fmt.Sprintf("[CHAPTER: %s]\n", entry.Title) + entry.Text,
			}
		} else if current != nil {
			current.content += fmt.Sprintf("\n[SECTION: %s]\n", entry.Title) + entry.Text
		}
	}
	if current != nil {
		chapters = append(chapters, *current)
	}

	var chunks []models.Chunk
	for _, ch := range chapters {
		if len(ch.content) <= maxSize {
			chunks = append(chunks, models.Chunk{Title: ch.title, Content: ch.content})
			continue
		}
		part := 1
		buf := ""
		for _, para := range strings.Split(ch.content, "\n\n") {
			if len(buf)+len(para) > maxSize && buf != "" {
				chunks = append(chunks, models.Chunk{
					Title:   fmt.Sprintf("%s (Part %d)", ch.title, part),
					Content: buf,
				})
				buf = para
				part++
			} else {
				buf = strings.TrimSpace(buf + "\n\n" + para)
			}
		}
		if buf != "" {
			chunks = append(chunks, models.Chunk{
				Title:   fmt.Sprintf("%s (Part %d)", ch.title, part),
				Content: buf,
			})
		}
	}
	return chunks
}

// splitByPages accumulates [PAGE_n] blocks until the next page would
// overflow the budget, then flushes.
func splitByPages(content string, maxSize int, title string) []models.Chunk {
	var chunks []models.Chunk
	buf := ""
	for _, page := range pageEndMarker.Split(content, -1) {
		if strings.TrimSpace(page) == "" {
			continue
		}
		if len(buf)+len(page) > maxSize && buf != "" {
			chunks = append(chunks, models.Chunk{Title: title, Content: buf})
			buf = page
		} else {
			buf += page
		}
	}
	if buf != "" {
		chunks = append(chunks, models.Chunk{Title: title, Content: buf})
	}
	return chunks
}

// splitByParagraphs applies the same overflow/flush rule on blank-line
// boundaries.
func splitByParagraphs(content string, maxSize int, title string) []models.Chunk {
	var chunks []models.Chunk
	buf := ""
	for _, para := range strings.Split(content, "\n\n") {
		if len(buf)+len(para) > maxSize && buf != "" {
			chunks = append(chunks, models.Chunk{Title: title, Content: buf})
			buf = para
		} else {
			buf = strings.TrimSpace(buf + "\n\n" + para)
		}
	}
	if buf != "" {
		chunks = append(chunks, models.Chunk{Title: title, Content: buf})
	}
	return chunks
}

// splitFixed hard-slices raw text with no structural awareness. The
// only strategy allowed to cut mid-content.
func splitFixed(content string, maxSize int, title string) []models.Chunk {
	runes := []rune(content)
	var chunks []models.Chunk
	for i := 0; i < len(runes); i += maxSize {
		end := i + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{Title: title, Content: string(runes[i:end])})
	}
	return chunks
}

// SplitDocument turns extracted content into one or more Documents.
// Content within budget stays a single document keyed by DocID(url);
// split parts are keyed by ChunkID(url, i) and, when a chunk reused the
// parent title, renamed "<title> (Part i/N)".
func SplitDocument(content string, sourceType models.SourceType, url, title, originalTitle string, maxSize int, toc []models.TocEntry) []models.Document {
	now := time.Now()
	if originalTitle == "" {
		originalTitle = title
	}

	if len(content) <= maxSize {
		return []models.Document{{
			DocID:         DocID(url),
			URL:           url,
			Title:         title,
			OriginalTitle: originalTitle,
			Content:       content,
			SourceType:    sourceType,
			DownloadedAt:  now,
			Lang:          "en",
		}}
	}

	chunks := Split(content, sourceType, maxSize, title, toc)
	docs := make([]models.Document, 0, len(chunks))
	for i, chunk := range chunks {
		chunkTitle := chunk.Title
		if chunkTitle == title {
			chunkTitle = fmt.Sprintf("%s (Part %d/%d)", chunk.Title, i+1, len(chunks))
		}
		docs = append(docs, models.Document{
			DocID:         ChunkID(url, i),
			URL:           url,
			Title:         chunkTitle,
			OriginalTitle: originalTitle,
			Content:       chunk.Content,
			SourceType:    sourceType,
			DownloadedAt:  now,
			Lang:          "en",
		})
	}
	return docs
}
