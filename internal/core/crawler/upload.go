package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/splitter"
)

// Uploader runs the same extract/split pipeline over an in-memory file
// instead of a fetched URL, optionally archiving the original bytes to
// object storage first.
type Uploader struct {
	crawler *Crawler
	objects core.ObjectStore // nil disables archival
}

func NewUploader(c *Crawler, objects core.ObjectStore) *Uploader {
	return &Uploader{crawler: c, objects: objects}
}

// ProcessUpload extracts, splits and persists an uploaded PDF under a
// synthetic local:// URL. Part IDs are rehashed with the part title so
// TOC-derived chapters of the same file stay distinct across uploads.
func (u *Uploader) ProcessUpload(ctx context.Context, data []byte, filename, ownerID string) (int, error) {
	if u.objects != nil {
		key := fmt.Sprintf("uploads/%s", filename)
		if _, err := u.objects.Upload(ctx, key, data, "application/pdf"); err != nil {
			// Archival is best effort; the pipeline still runs.
			u.crawler.log.Warnw("upload archive failed", "file", filename, "error", err)
		}
	}

	ex := u.crawler.extractor.Extract(data, "application/pdf", filename)

	localURL := fmt.Sprintf("local://%s", filename)
	docs := splitter.SplitDocument(
		ex.Text, ex.SourceType, localURL,
		CleanTitle(filename), CleanTitle(ex.OriginalTitle),
		u.crawler.maxDocumentSize, ex.TOC,
	)

	for i := range docs {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s", docs[i].DocID, docs[i].Title)))
		docs[i].DocID = hex.EncodeToString(sum[:])
	}

	if err := u.crawler.SaveAll(ctx, docs, ownerID); err != nil {
		return 0, fmt.Errorf("save upload %s: %w", filename, err)
	}
	u.crawler.log.Infow("upload processed", "file", filename, "documents", len(docs))
	return len(docs), nil
}
