package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFrontMatter(t *testing.T) {
	doc := "---\ntitle: Users API\nversion: 1\n---\n# Users\n\nbody\n"
	assert.Equal(t, "# Users\n\nbody\n", StripFrontMatter(doc))
	assert.Equal(t, "no front matter", StripFrontMatter("no front matter"))
}

func TestSegmentSectionPaths(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Users API\n\n")
	b.WriteString(strings.Repeat("Overview sentence about the service. ", 10))
	b.WriteString("\n\n## Charges\n\n")
	b.WriteString(strings.Repeat("Charges can be listed and created via the API. ", 10))

	s := NewSegmenter()
	s.MinChunks = 1
	chunks := s.Segment(b.String())
	require.NotEmpty(t, chunks)

	paths := make(map[string]bool)
	for _, c := range chunks {
		paths[c.SectionPath] = true
	}
	assert.True(t, paths["Users API"])
	assert.True(t, paths["Users API > Charges"])
}

func TestSegmentRespectsChunkSize(t *testing.T) {
	s := NewSegmenter()
	s.MinChunks = 1
	long := strings.Repeat("word ", 2000)
	chunks := s.Segment(long)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), s.ChunkSize)
	}
}

func TestSegmentOverlapCarriesContext(t *testing.T) {
	s := NewSegmenter()
	s.MinChunks = 1
	long := ""
	for i := 0; i < 400; i++ {
		long += "sentence number " + strings.Repeat("x", i%7) + " here.\n"
	}
	chunks := s.Segment(long)
	require.Greater(t, len(chunks), 1)

	// consecutive chunks share a tail/head region
	first := chunks[0].Content
	second := chunks[1].Content
	tail := first[len(first)-40:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	}
	assert.Contains(t, second, strings.TrimSpace(tail))
}

func TestSegmentDropsShortAndCorruptChunks(t *testing.T) {
	s := NewSegmenter()
	s.MinChunks = 1
	doc := "# T\n\ntiny\n\n## Broken\n\n" +
		strings.Repeat("valid content line with enough characters to keep. ", 5) +
		"\n\n## Debris\n\nwABEgEAAAADAOz_" + strings.Repeat("A", 200)

	chunks := s.Segment(doc)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c.Content), s.MinChunkSize)
		assert.NotContains(t, c.Content, "wABEgEAAAADAOz_")
	}
	require.NotEmpty(t, chunks)
}

func TestSegmentFallbackOnSparseSplit(t *testing.T) {
	// headingless wall of text under the structured split produces few
	// chunks; the fallback re-split still covers all of it
	s := NewSegmenter()
	long := strings.Repeat("plain prose with no headings at all. ", 100)
	chunks := s.Segment(long)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Empty(t, c.SectionPath)
		assert.LessOrEqual(t, len(c.Content), s.FallbackChunkSize)
	}
}

func TestSegmentIndicesAreSequential(t *testing.T) {
	s := NewSegmenter()
	s.MinChunks = 1
	chunks := s.Segment(strings.Repeat("some documentation text goes here. ", 200))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}
