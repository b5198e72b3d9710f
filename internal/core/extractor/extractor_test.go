package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/logging"
	"github.com/osamusic/med-regulatory/internal/models"
)

func TestExtractHTML(t *testing.T) {
	page := `<html>
<head>
  <title>  Cybersecurity Guidance  </title>
  <script>var tracking = "do not extract";</script>
  <style>.hidden { display: none; }</style>
</head>
<body>
  <h1>Overview</h1>
  <p>Medical devices shall be secured.</p>
  <noscript>enable javascript</noscript>
</body>
</html>`

	ex := New(logging.Nop()).Extract([]byte(page), "text/html", "https://e.com/guidance")

	assert.Equal(t, models.SourceHTML, ex.SourceType)
	assert.Equal(t, "Cybersecurity Guidance", ex.OriginalTitle)
	assert.Contains(t, ex.Text, "Overview")
	assert.Contains(t, ex.Text, "Medical devices shall be secured.")
	assert.NotContains(t, ex.Text, "do not extract")
	assert.NotContains(t, ex.Text, "display: none")
	assert.NotContains(t, ex.Text, "enable javascript")
}

func TestExtractHTMLTitleFallsBackToURL(t *testing.T) {
	ex := New(logging.Nop()).Extract([]byte("<html><body><p>no title</p></body></html>"),
		"text/html", "https://e.com/page")
	assert.Equal(t, "https://e.com/page", ex.OriginalTitle)
}

func TestExtractUnknownTypePlaceholder(t *testing.T) {
	ex := New(logging.Nop()).Extract([]byte{0x01, 0x02}, "image/png", "https://e.com/chart.png")

	assert.Equal(t, models.SourceOther, ex.SourceType)
	assert.Equal(t, "Content from https://e.com/chart.png - format image/png", ex.Text)
	assert.Equal(t, "chart.png", ex.OriginalTitle)
}

func TestExtractMalformedPDFDegrades(t *testing.T) {
	ex := New(logging.Nop()).Extract([]byte("definitely not a pdf"), "application/pdf", "https://e.com/bad.pdf")

	assert.Equal(t, models.SourcePDF, ex.SourceType)
	assert.True(t, strings.HasPrefix(ex.Text, "Failed to extract content from PDF at https://e.com/bad.pdf"))
	assert.Equal(t, "bad.pdf", ex.OriginalTitle)
	assert.Empty(t, ex.TOC)
}

func TestLastURLSegment(t *testing.T) {
	assert.Equal(t, "file.pdf", lastURLSegment("https://e.com/a/file.pdf"))
	assert.Equal(t, "plain", lastURLSegment("plain"))
	assert.Equal(t, "", lastURLSegment("https://e.com/dir/"))
}

func TestAttributeTOCPageTextAtMostOnce(t *testing.T) {
	pages := []string{
		"1 Introduction\nScope of the guidance.",
		"2 Risk Management\n2.1 Threat Modelling\nIdentify threats early.",
		"3 Lifecycle\nMaintain patches.",
	}
	items := []outlineItem{
		{Title: "1 Introduction", Level: 1},
		{Title: "2 Risk Management", Level: 1},
		{Title: "2.1 Threat Modelling", Level: 2},
		{Title: "3 Lifecycle", Level: 1},
	}

	entries := attributeTOC(items, pages)
	require.Len(t, entries, 4)

	assert.Equal(t, 0, entries[0].PageNum)
	assert.Equal(t, pages[0], entries[0].Text)

	// both chapter 2 entries land on page 1; only the first carries text
	assert.Equal(t, 1, entries[1].PageNum)
	assert.Equal(t, pages[1], entries[1].Text)
	assert.Equal(t, 1, entries[2].PageNum)
	assert.Empty(t, entries[2].Text)

	assert.Equal(t, 2, entries[3].PageNum)
	assert.Equal(t, pages[2], entries[3].Text)

	// each page's text appears exactly once across the whole TOC
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Text != "" {
			counts[e.Text]++
		}
	}
	for text, n := range counts {
		assert.Equal(t, 1, n, "page text attributed more than once: %q", text)
	}
}

func TestAttributeTOCMissingTitle(t *testing.T) {
	pages := []string{"1 Introduction", "2 Details"}
	entries := attributeTOC([]outlineItem{
		{Title: "Appendix Z", Level: 1},
		{Title: "2 Details", Level: 1},
	}, pages)

	require.Len(t, entries, 2)
	assert.Equal(t, -1, entries[0].PageNum)
	assert.Empty(t, entries[0].Text)
	assert.Equal(t, 1, entries[1].PageNum)
}

func TestAttributeTOCFallsBackToFullScan(t *testing.T) {
	// a back-matter entry appearing before front matter in the outline
	// still lands via the wrap-around scan
	pages := []string{"Preface", "Index"}
	entries := attributeTOC([]outlineItem{
		{Title: "Index", Level: 1},
		{Title: "Preface", Level: 1},
	}, pages)

	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].PageNum)
	assert.Equal(t, 0, entries[1].PageNum)
	assert.Equal(t, "Preface", entries[1].Text)
}

func TestStripPageMarkers(t *testing.T) {
	text := "[PAGE_0]\nreal content\n[/PAGE_0]\n[PAGE_1]\n\n[/PAGE_1]\n"
	stripped := stripPageMarkers(text)
	assert.Contains(t, stripped, "real content")
	assert.NotContains(t, stripped, "[PAGE_")

	empty := "[PAGE_0]\n\n[/PAGE_0]\n"
	require.Equal(t, "", strings.TrimSpace(stripPageMarkers(empty)))
}
