package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/core/crawler"
	"github.com/osamusic/med-regulatory/internal/core/extractor"
	"github.com/osamusic/med-regulatory/internal/logging"
	"github.com/osamusic/med-regulatory/internal/models"
	"github.com/osamusic/med-regulatory/internal/testutil"
)

func newCrawlerTestHandler(store *testutil.MemStore) *CrawlerHandler {
	engine := crawler.New(store, extractor.New(logging.Nop()), logging.Nop(), 4000, time.Second, 1000)
	sched := crawler.NewScheduler(engine, logging.Nop())
	return NewCrawlerHandler(store, engine, nil, sched, logging.Nop())
}

func TestScheduleEndpointRegistersCrawl(t *testing.T) {
	h := newCrawlerTestHandler(testutil.NewMemStore())

	body := `{"cron": "@daily", "target": {"url": "https://e.com/docs", "depth": 1}}`
	rec := httptest.NewRecorder()
	h.Schedule(rec, httptest.NewRequest(http.MethodPost, "/api/crawler/schedule", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "@daily", created["cron"])
	assert.Equal(t, "https://e.com/docs", created["url"])

	rec = httptest.NewRecorder()
	h.Schedules(rec, httptest.NewRequest(http.MethodGet, "/api/crawler/schedules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []crawler.ScheduleEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "@daily", entries[0].Cron)
	assert.Equal(t, "https://e.com/docs", entries[0].Target.URL)
	assert.Equal(t, 1, entries[0].Target.Depth)
}

func TestScheduleEndpointRejectsBadRequests(t *testing.T) {
	h := newCrawlerTestHandler(testutil.NewMemStore())

	for name, body := range map[string]string{
		"bad cron":    `{"cron": "whenever", "target": {"url": "https://e.com"}}`,
		"missing url": `{"cron": "@daily", "target": {}}`,
		"not json":    `cron please`,
	} {
		rec := httptest.NewRecorder()
		h.Schedule(rec, httptest.NewRequest(http.MethodPost, "/api/crawler/schedule", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestDocumentsEndpointListsNewestFirst(t *testing.T) {
	store := testutil.NewMemStore()
	h := newCrawlerTestHandler(store)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, store.Upsert(ctx, &models.Document{
			DocID:        id,
			URL:          "https://e.com/" + id,
			Title:        "Doc " + id,
			DownloadedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := httptest.NewRecorder()
	h.Documents(rec, httptest.NewRequest(http.MethodGet, "/api/crawler/documents?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []models.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "d3", docs[0].DocID)
	assert.Equal(t, "d2", docs[1].DocID)
}

func TestDocumentsEndpointEmptyStore(t *testing.T) {
	h := newCrawlerTestHandler(testutil.NewMemStore())

	rec := httptest.NewRecorder()
	h.Documents(rec, httptest.NewRequest(http.MethodGet, "/api/crawler/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
