package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/extractor"
	"github.com/osamusic/med-regulatory/internal/core/splitter"
	"github.com/osamusic/med-regulatory/internal/models"
)

const userAgent = "MedShield AI Crawler/1.0"

// Crawler fetches web resources, extracts and splits their content, and
// emits Document records. One crawl is strictly sequential; the rate
// limiter bounds outbound request frequency against target servers.
type Crawler struct {
	store     core.Store
	extractor *extractor.Extractor
	client    *http.Client
	limiter   *rate.Limiter
	log       *zap.SugaredLogger

	maxDocumentSize int
}

func New(store core.Store, ex *extractor.Extractor, log *zap.SugaredLogger, maxDocumentSize int, fetchTimeout time.Duration, rps float64) *Crawler {
	if maxDocumentSize <= 0 {
		maxDocumentSize = 4000
	}
	if rps <= 0 {
		rps = 2
	}
	return &Crawler{
		store:           store,
		extractor:       ex,
		client:          &http.Client{Timeout: fetchTimeout},
		limiter:         rate.NewLimiter(rate.Limit(rps), 1),
		log:             log,
		maxDocumentSize: maxDocumentSize,
	}
}

// run holds the state of one crawl invocation. The visited set dedups
// URLs and keeps cyclic link graphs from recursing forever.
type run struct {
	c       *Crawler
	target  models.CrawlTarget
	visited map[string]bool
	docs    []models.Document
}

// Crawl traverses the target URL up to the configured depth and returns
// the extracted documents in traversal order. Errors on individual
// branches are logged and absorbed; the crawl itself does not fail.
func (c *Crawler) Crawl(ctx context.Context, target models.CrawlTarget) []models.Document {
	if len(target.MimeFilters) == 0 {
		target.MimeFilters = models.DefaultMimeFilters
	}
	if target.MaxDocumentSize <= 0 {
		target.MaxDocumentSize = c.maxDocumentSize
	}

	c.log.Infow("starting crawl", "url", target.URL, "depth", target.Depth)
	r := &run{c: c, target: target, visited: make(map[string]bool)}
	r.visit(ctx, target.URL, 0)
	c.log.Infow("crawl completed", "url", target.URL, "documents", len(r.docs))
	return r.docs
}

// visit fetches one URL and recurses over its links. Failure here is
// local: a broken branch never takes down its siblings.
func (r *run) visit(ctx context.Context, rawURL string, depth int) {
	if depth > r.target.Depth || r.visited[rawURL] {
		return
	}
	// Mark before fetching so cyclic links cannot re-enter.
	r.visited[rawURL] = true
	r.c.log.Infow("crawling", "url", rawURL, "depth", depth)

	if skip, err := r.shouldSkip(ctx, rawURL); err != nil {
		r.c.log.Errorw("existence check failed", "url", rawURL, "error", err)
		return
	} else if skip {
		r.c.log.Infow("skipping existing document", "url", rawURL)
		return
	}

	body, contentType, err := r.c.fetch(ctx, rawURL)
	if err != nil {
		r.c.log.Errorw("fetch failed", "url", rawURL, "error", err)
		return
	}

	if matchesMime(contentType, r.target.MimeFilters) {
		r.docs = append(r.docs, r.c.processDocument(rawURL, body, contentType, r.target)...)
	}

	if contentType == "text/html" && depth < r.target.Depth {
		r.followLinks(ctx, body, rawURL, depth)
	}
}

// shouldSkip reports whether the document already exists and the target
// forbids updating it. Avoids wasted fetches and LLM work downstream.
func (r *run) shouldSkip(ctx context.Context, rawURL string) (bool, error) {
	if r.target.UpdateExisting {
		return false, nil
	}
	return r.c.store.Exists(ctx, splitter.DocID(rawURL))
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return body, strings.TrimSpace(contentType), nil
}

func matchesMime(contentType string, filters []string) bool {
	for _, f := range filters {
		if contentType == f {
			return true
		}
	}
	return false
}

// followLinks parses anchors from an HTML page and recurses one level
// deeper for each.
func (r *run) followLinks(ctx context.Context, body []byte, baseURL string, depth int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		r.c.log.Errorw("link parse failed", "url", baseURL, "error", err)
		return
	}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" {
			return
		}
		r.visit(ctx, normalizeLink(baseURL, href), depth+1)
	})
}

// normalizeLink resolves href to an absolute URL: root-relative paths
// against the base's scheme+host, other relative paths beneath the base
// page itself ("c" from .../a/b gives .../a/b/c, not .../a/c), absolute
// URLs pass through.
func normalizeLink(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, href)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String()
}

// processDocument converts fetched bytes into one or more Documents via
// the extractor and splitter.
func (c *Crawler) processDocument(rawURL string, body []byte, contentType string, target models.CrawlTarget) []models.Document {
	ex := c.extractor.Extract(body, contentType, rawURL)

	title := rawURL
	if i := strings.LastIndex(rawURL, "/"); i >= 0 && i < len(rawURL)-1 {
		title = rawURL[i+1:]
	}
	originalTitle := ex.OriginalTitle
	if ex.SourceType == models.SourceHTML {
		// For HTML the page <title> is the display title itself.
		title = ex.OriginalTitle
		originalTitle = ""
	}

	return splitter.SplitDocument(
		ex.Text, ex.SourceType, rawURL,
		CleanTitle(title), CleanTitle(originalTitle),
		target.MaxDocumentSize, ex.TOC,
	)
}

// SaveAll upserts crawled documents: an existing doc_id is updated in
// place, a new one inserted. Re-crawling a stable URL never duplicates.
func (c *Crawler) SaveAll(ctx context.Context, docs []models.Document, ownerID string) error {
	for i := range docs {
		docs[i].OwnerID = ownerID
		if err := c.store.Upsert(ctx, &docs[i]); err != nil {
			return fmt.Errorf("upsert %s: %w", docs[i].DocID, err)
		}
	}
	return nil
}

var (
	titleKeep     = regexp.MustCompile(`[^\w\s\-\x{3041}-\x{3093}\x{30A1}-\x{30F3}\x{4E00}-\x{9FAF}]`)
	titleCollapse = regexp.MustCompile(`[_\s]+`)
	titleExt      = regexp.MustCompile(`^(.+?)(\.[^.]+)?$`)
)

// CleanTitle standardizes a document title: URL-unescape, drop the file
// extension, strip punctuation (word chars, spaces, hyphens and
// Japanese ranges survive), collapse underscores and runs of
// whitespace, and cap at 100 runes.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	if unescaped, err := url.QueryUnescape(title); err == nil {
		title = unescaped
	}
	if m := titleExt.FindStringSubmatch(title); m != nil {
		title = m[1]
	}
	title = titleKeep.ReplaceAllString(title, "")
	title = strings.TrimSpace(titleCollapse.ReplaceAllString(title, " "))

	runes := []rune(title)
	if len(runes) > 100 {
		title = strings.TrimRight(string(runes[:100]), " ")
	}
	return title
}
