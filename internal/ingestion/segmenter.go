package ingestion

import (
	"regexp"
	"strings"
)

// Chunk is one retrievable unit of the ingested document.
type Chunk struct {
	Content     string
	SectionPath string
	Index       int
}

// Segmenter splits markdown into overlapping chunks while preserving
// section structure. Chunks that are too short or carry corruption
// signatures are dropped; if the structured split yields too few
// chunks the whole text is re-split with coarser settings.
type Segmenter struct {
	ChunkSize         int
	ChunkOverlap      int
	MinChunkSize      int
	FallbackChunkSize int
	FallbackOverlap   int
	MinChunks         int
}

func NewSegmenter() *Segmenter {
	return &Segmenter{
		ChunkSize:         1500,
		ChunkOverlap:      300,
		MinChunkSize:      50,
		FallbackChunkSize: 4000,
		FallbackOverlap:   800,
		MinChunks:         10,
	}
}

var (
	frontMatterRe = regexp.MustCompile(`(?s)^---\n.*?\n---\n`)
	headingLineRe = regexp.MustCompile(`(?m)^(#{1,2})\s+(.+)$`)

	// broken JSON tails and base64 image debris seen in scraped docs
	corruptionSignatures = []string{"}\n]\n```", "wABEgEAAAADAOz_"}

	sectionSeparators  = []string{"\n\n## ", "\n\n### ", "\n\n", "\n", " ", ""}
	fallbackSeparators = []string{"\n\n", "\n", " ", ""}
)

// StripFrontMatter removes a leading YAML front-matter block.
func StripFrontMatter(text string) string {
	return frontMatterRe.ReplaceAllString(text, "")
}

// Segment chunks the document. The input should already have front
// matter stripped.
func (s *Segmenter) Segment(text string) []Chunk {
	var chunks []Chunk
	for _, sec := range splitSections(text) {
		for _, piece := range recursiveSplit(sec.body, s.ChunkSize, s.ChunkOverlap, sectionSeparators) {
			if s.keep(piece) {
				chunks = append(chunks, Chunk{Content: piece, SectionPath: sec.path})
			}
		}
	}

	if len(chunks) < s.MinChunks {
		chunks = chunks[:0]
		for _, piece := range recursiveSplit(text, s.FallbackChunkSize, s.FallbackOverlap, fallbackSeparators) {
			if s.keep(piece) {
				chunks = append(chunks, Chunk{Content: piece})
			}
		}
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func (s *Segmenter) keep(piece string) bool {
	content := strings.TrimSpace(piece)
	if len(content) < s.MinChunkSize {
		return false
	}
	for _, sig := range corruptionSignatures {
		if strings.Contains(content, sig) {
			return false
		}
	}
	return true
}

type section struct {
	path string
	body string
}

// splitSections cuts the document at h1/h2 headings and labels each
// section with a breadcrumb like "Title > Subsection".
func splitSections(text string) []section {
	matches := headingLineRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []section{{body: text}}
	}

	var out []section
	if lead := strings.TrimSpace(text[:matches[0][0]]); lead != "" {
		out = append(out, section{body: lead})
	}

	var h1, h2 string
	for i, m := range matches {
		level := m[3] - m[2]
		title := strings.TrimSpace(text[m[4]:m[5]])
		if level == 1 {
			h1, h2 = title, ""
		} else {
			h2 = title
		}

		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		if body == "" {
			continue
		}
		out = append(out, section{path: breadcrumb(h1, h2), body: body})
	}
	return out
}

func breadcrumb(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " > ")
}

// recursiveSplit breaks text into pieces no longer than size, trying
// the separators in order from coarsest to finest. Consecutive small
// pieces merge back together up to size, carrying overlap bytes of the
// previous chunk forward for context continuity.
func recursiveSplit(text string, size, overlap int, seps []string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	sep, remaining := pickSeparator(text, seps)
	if sep == "" {
		return hardSplit(text, size, overlap)
	}

	var pieces []string
	for _, part := range splitKeepSeparator(text, sep) {
		if len(part) > size {
			pieces = append(pieces, recursiveSplit(part, size, overlap, remaining)...)
		} else if p := strings.TrimSpace(part); p != "" {
			pieces = append(pieces, p)
		}
	}
	return mergePieces(pieces, size, overlap)
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, s := range seps {
		if s == "" {
			return "", nil
		}
		if strings.Contains(text, s) {
			return s, seps[i+1:]
		}
	}
	return "", nil
}

// splitKeepSeparator cuts at each occurrence of sep, leaving sep at the
// start of the following part so heading markers survive the split.
func splitKeepSeparator(text, sep string) []string {
	var parts []string
	for {
		i := strings.Index(text[1:], sep)
		if i < 0 {
			parts = append(parts, text)
			return parts
		}
		i++
		parts = append(parts, text[:i])
		text = text[i:]
	}
}

func mergePieces(pieces []string, size, overlap int) []string {
	var out []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+len(p)+1 > size {
			chunk := strings.TrimSpace(cur.String())
			out = append(out, chunk)
			cur.Reset()
			cur.WriteString(overlapTail(chunk, overlap))
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(p)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns at most overlap bytes from the end of chunk,
// aligned to a word boundary.
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 || len(chunk) <= overlap {
		if overlap <= 0 {
			return ""
		}
		return chunk
	}
	tail := chunk[len(chunk)-overlap:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}

func hardSplit(text string, size, overlap int) []string {
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
	}
	return out
}
