package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/core/extractor"
	"github.com/osamusic/med-regulatory/internal/core/splitter"
	"github.com/osamusic/med-regulatory/internal/logging"
	"github.com/osamusic/med-regulatory/internal/models"
	"github.com/osamusic/med-regulatory/internal/testutil"
)

func newTestCrawler(store *testutil.MemStore) *Crawler {
	ex := extractor.New(logging.Nop())
	return New(store, ex, logging.Nop(), 4000, 5*time.Second, 1000)
}

// hitCounter counts fetches per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) inc(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[path]++
}

func (h *hitCounter) get(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

// testSite serves a small link graph.
func testSite(t *testing.T) (*httptest.Server, *hitCounter) {
	t.Helper()
	hits := &hitCounter{hits: make(map[string]int)}

	mux := http.NewServeMux()
	page := func(path, title, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			hits.inc(path)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><head><title>%s</title></head><body>%s</body></html>", title, body)
		})
	}

	page("/", "Home Page", `<p>welcome</p><a href="/a">a</a><a href="/b">b</a><a href="/">self</a>`)
	page("/a", "Page A", `<p>alpha content</p><a href="/deep">deeper</a>`)
	page("/b", "Page B", `<p>beta content</p>`)
	page("/deep", "Deep Page", `<p>too deep</p>`)
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		hits.inc("/notes.txt")
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "plain text")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestCrawlDepthAndOrder(t *testing.T) {
	srv, hits := testSite(t)
	store := testutil.NewMemStore()
	c := newTestCrawler(store)

	docs := c.Crawl(context.Background(), models.CrawlTarget{URL: srv.URL + "/", Depth: 1})

	require.Len(t, docs, 3)
	assert.Equal(t, "Home Page", docs[0].Title)
	assert.Equal(t, "Page A", docs[1].Title)
	assert.Equal(t, "Page B", docs[2].Title)

	// depth 1 means /deep (linked from /a) is never fetched
	assert.Zero(t, hits.get("/deep"))
	// the self link must not refetch the root
	assert.Equal(t, 1, hits.get("/"))
}

func TestCrawlMimeFilter(t *testing.T) {
	srv, hits := testSite(t)
	store := testutil.NewMemStore()
	c := newTestCrawler(store)

	docs := c.Crawl(context.Background(), models.CrawlTarget{
		URL:         srv.URL + "/notes.txt",
		Depth:       0,
		MimeFilters: []string{"text/html"},
	})

	assert.Empty(t, docs)
	assert.Equal(t, 1, hits.get("/notes.txt"))
}

func TestCrawlIdempotentRecrawl(t *testing.T) {
	srv, hits := testSite(t)
	store := testutil.NewMemStore()
	c := newTestCrawler(store)
	ctx := context.Background()

	target := models.CrawlTarget{URL: srv.URL + "/", Depth: 1}
	first := c.Crawl(ctx, target)
	require.NoError(t, c.SaveAll(ctx, first, "u1"))

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// with UpdateExisting off, known URLs are skipped before fetching
	second := c.Crawl(ctx, target)
	assert.Empty(t, second)
	assert.Equal(t, 1, hits.get("/"))

	// with UpdateExisting on, content is refetched but upserted in place
	target.UpdateExisting = true
	third := c.Crawl(ctx, target)
	require.Len(t, third, 3)
	require.NoError(t, c.SaveAll(ctx, third, "u1"))

	count, err = store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "re-crawl must never duplicate documents")
}

func TestCrawlDocIDStableAcrossRuns(t *testing.T) {
	srv, _ := testSite(t)
	store := testutil.NewMemStore()
	c := newTestCrawler(store)

	url := srv.URL + "/b"
	docs := c.Crawl(context.Background(), models.CrawlTarget{URL: url, Depth: 0})
	require.Len(t, docs, 1)
	assert.Equal(t, splitter.DocID(url), docs[0].DocID)
}

func TestNormalizeLink(t *testing.T) {
	base := "https://example.com/docs/page.html"

	assert.Equal(t, "https://other.org/x", normalizeLink(base, "https://other.org/x"))
	assert.Equal(t, "https://example.com/top", normalizeLink(base, "/top"))

	// page-relative links resolve beneath the page, not its parent
	assert.Equal(t, "https://example.com/docs/page.html/child.html", normalizeLink(base, "child.html"))
	assert.Equal(t, "https://example.com/docs/child.html", normalizeLink(base, "../child.html"))
	assert.Equal(t, "https://example.com/docs/a/child.html",
		normalizeLink("https://example.com/docs/a/", "child.html"))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "guidance document", CleanTitle("guidance_document.pdf"))
	assert.Equal(t, "my file", CleanTitle("my%20file.pdf"))
	assert.Equal(t, "FDA Premarket Guidance", CleanTitle("FDA: Premarket Guidance!"))
	assert.Equal(t, "", CleanTitle(""))

	long := CleanTitle(repeatRune('a', 150))
	assert.LessOrEqual(t, len([]rune(long)), 100)
}

func TestCleanTitleKeepsJapanese(t *testing.T) {
	assert.Equal(t, "医療機器ガイダンス", CleanTitle("医療機器ガイダンス.pdf"))
}

func repeatRune(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

func TestProcessUploadRehashesPartIDs(t *testing.T) {
	store := testutil.NewMemStore()
	c := newTestCrawler(store)
	u := NewUploader(c, nil)
	ctx := context.Background()

	// not a real PDF: extraction degrades to placeholder text, but the
	// ingest path still persists a document under the synthetic URL
	n, err := u.ProcessUpload(ctx, []byte("not a pdf"), "guidance.pdf", "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// the stored ID is the rehash, not the plain URL hash
	plain := splitter.DocID("local://guidance.pdf")
	exists, err := store.Exists(ctx, plain)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// same file uploaded twice lands on the same rehashed ID
	n, err = u.ProcessUpload(ctx, []byte("not a pdf"), "guidance.pdf", "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	count, err = store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
