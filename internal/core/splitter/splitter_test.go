package splitter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osamusic/med-regulatory/internal/models"
)

func TestDocIDDeterministic(t *testing.T) {
	a := DocID("https://example.com/guidance.pdf")
	b := DocID("https://example.com/guidance.pdf")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, DocID("https://example.com/other.pdf"))
}

func TestChunkIDMatchesIndexedURL(t *testing.T) {
	url := "https://example.com/doc"
	assert.Equal(t, DocID(url+"_0"), ChunkID(url, 0))
	assert.Equal(t, DocID(url+"_7"), ChunkID(url, 7))
	assert.NotEqual(t, ChunkID(url, 0), ChunkID(url, 1))
}

func TestSplitByParagraphsRespectsBudget(t *testing.T) {
	paras := make([]string, 12)
	for i := range paras {
		paras[i] = strings.Repeat(fmt.Sprintf("p%d ", i), 10)
	}
	content := strings.Join(paras, "\n\n")

	chunks := Split(content, models.SourceHTML, 150, "Guide", nil)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 150)
		assert.Equal(t, "Guide", ch.Title)
	}
}

func TestSplitByParagraphsReconstructs(t *testing.T) {
	content := "alpha block one\n\nbeta block two\n\ngamma block three\n\ndelta block four"

	chunks := Split(content, models.SourceHTML, 40, "t", nil)
	require.Greater(t, len(chunks), 1)

	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	assert.Equal(t, content, strings.Join(parts, "\n\n"))
}

func TestSplitOversizedParagraphEmittedWhole(t *testing.T) {
	big := strings.Repeat("x", 500)
	content := "small\n\n" + big + "\n\ntail"

	chunks := Split(content, models.SourceHTML, 100, "t", nil)
	var found bool
	for _, ch := range chunks {
		if strings.Contains(ch.Content, big) {
			found = true
			assert.Greater(t, len(ch.Content), 100)
		}
	}
	assert.True(t, found, "oversized paragraph must not be cut mid-unit")
}

func TestSplitByPages(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "[PAGE_%d]\n%s\n[/PAGE_%d]\n", i, strings.Repeat("text ", 10), i)
	}

	chunks := Split(b.String(), models.SourcePDF, 130, "Guidance", nil)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, "Guidance", ch.Title)
		assert.Contains(t, ch.Content, "[PAGE_")
	}

	// every page start marker survives exactly once across the chunks
	joined := strings.Join(func() []string {
		var out []string
		for _, ch := range chunks {
			out = append(out, ch.Content)
		}
		return out
	}(), "")
	for i := 0; i < 6; i++ {
		assert.Equal(t, 1, strings.Count(joined, fmt.Sprintf("[PAGE_%d]", i)))
	}
}

func TestSplitByTOCChapters(t *testing.T) {
	toc := []models.TocEntry{
		{Level: 1, Title: "Introduction", Text: "intro text"},
		{Level: 2, Title: "Scope", Text: "scope text"},
		{Level: 1, Title: "Risk Management", Text: "risk text"},
	}

	chunks := Split("ignored", models.SourcePDF, 4000, "Guidance", toc)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Introduction", chunks[0].Title)
	assert.Contains(t, chunks[0].Content, "[CHAPTER: Introduction]")
	assert.Contains(t, chunks[0].Content, "[SECTION: Scope]")
	assert.Contains(t, chunks[0].Content, "scope text")

	assert.Equal(t, "Risk Management", chunks[1].Title)
	assert.Contains(t, chunks[1].Content, "[CHAPTER: Risk Management]")
}

func TestSplitByTOCOversizedChapterGetsParts(t *testing.T) {
	toc := []models.TocEntry{
		{Level: 1, Title: "Long Chapter", Text: strings.Repeat("sentence one\n\n", 30)},
	}
	chunks := Split("ignored", models.SourcePDF, 120, "Guidance", toc)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, fmt.Sprintf("Long Chapter (Part %d)", i+1), ch.Title)
	}
}

func TestSplitFixedIsRuneSafe(t *testing.T) {
	content := strings.Repeat("医療機器", 50)
	chunks := Split(content, models.SourceOther, 7, "t", nil)

	var rebuilt strings.Builder
	for _, ch := range chunks {
		assert.True(t, len([]rune(ch.Content)) <= 7)
		rebuilt.WriteString(ch.Content)
	}
	assert.Equal(t, content, rebuilt.String())
}

func TestSplitDocumentSingleWithinBudget(t *testing.T) {
	docs := SplitDocument("short content", models.SourceHTML, "https://e.com/a", "Title", "", 4000, nil)
	require.Len(t, docs, 1)
	assert.Equal(t, DocID("https://e.com/a"), docs[0].DocID)
	assert.Equal(t, "Title", docs[0].Title)
	assert.Equal(t, "Title", docs[0].OriginalTitle)
	assert.Equal(t, "en", docs[0].Lang)
}

func TestSplitDocumentPartsNumbered(t *testing.T) {
	content := strings.Repeat("paragraph text here\n\n", 20)
	url := "https://e.com/long"

	docs := SplitDocument(content, models.SourceHTML, url, "Guide", "", 100, nil)
	require.Greater(t, len(docs), 1)
	for i, d := range docs {
		assert.Equal(t, ChunkID(url, i), d.DocID)
		assert.Equal(t, fmt.Sprintf("Guide (Part %d/%d)", i+1, len(docs)), d.Title)
		assert.Equal(t, url, d.URL)
		assert.Equal(t, "Guide", d.OriginalTitle)
	}
}

func TestSplitDocumentKeepsChapterTitles(t *testing.T) {
	toc := []models.TocEntry{
		{Level: 1, Title: "Chapter A", Text: "a"},
		{Level: 1, Title: "Chapter B", Text: "b"},
	}
	content := strings.Repeat("x", 50)

	docs := SplitDocument(content, models.SourcePDF, "https://e.com/p", "Guidance", "Original Guidance", 30, toc)
	require.Len(t, docs, 2)
	// chapter titles differ from the parent title, so no part suffix
	assert.Equal(t, "Chapter A", docs[0].Title)
	assert.Equal(t, "Chapter B", docs[1].Title)
	assert.Equal(t, "Original Guidance", docs[0].OriginalTitle)
}
