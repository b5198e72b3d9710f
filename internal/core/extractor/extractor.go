package extractor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/models"
)

// Extraction is the result of converting fetched bytes into plain text.
// TOC and OriginalTitle are only populated for structured sources.
type Extraction struct {
	Text          string
	TOC           []models.TocEntry
	OriginalTitle string
	SourceType    models.SourceType
}

// Extractor converts raw resource bytes into text plus optional
// structural metadata. It knows nothing about crawling or chunking.
type Extractor struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Extractor {
	return &Extractor{log: log}
}

// convertible lists non-HTML/PDF content types routed through docconv
// before falling back to the synthetic placeholder.
var convertible = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/msword": ".doc",
	"application/rtf":    ".rtf",
	"text/plain":         ".txt",
}

// Extract never fails outward: every error path yields placeholder text
// so the caller always receives something persistable.
func (e *Extractor) Extract(data []byte, contentType, srcURL string) Extraction {
	switch {
	case contentType == "text/html":
		return e.extractHTML(data, srcURL)
	case contentType == "application/pdf":
		return e.extractPDF(data, srcURL)
	default:
		if _, ok := convertible[contentType]; ok {
			if ex, err := e.extractConverted(data, contentType, srcURL); err == nil {
				return ex
			} else {
				e.log.Warnw("conversion failed, using placeholder", "url", srcURL, "content_type", contentType, "error", err)
			}
		}
		return Extraction{
			Text:          fmt.Sprintf("Content from %s - format %s", srcURL, contentType),
			OriginalTitle: lastURLSegment(srcURL),
			SourceType:    models.SourceOther,
		}
	}
}

// lastURLSegment returns the path tail, the default title for sources
// that carry none of their own.
func lastURLSegment(u string) string {
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
