// ABOUTME: Chunker splits markdown documents into retrieval-sized passages
// ABOUTME: Structure-aware heading split first, sliding-window size fallback second
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/byoung/ai-me/internal/config"
	"github.com/byoung/ai-me/internal/models"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)

// Chunker cuts documents into chunks of at most targetSize bytes, with
// overlap bytes shared between consecutive window chunks.
type Chunker struct {
	targetSize int
	overlap    int
}

// New validates the chunking parameters and returns a Chunker.
// Overlap must be smaller than targetSize; violating this is a
// configuration error raised here, not at chunk time.
func New(targetSize, overlap int) (*Chunker, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", targetSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d, size %d", config.ErrChunkConfig, overlap, targetSize)
	}
	return &Chunker{targetSize: targetSize, overlap: overlap}, nil
}

// section is a structural segment of the document delimited by headings.
type section struct {
	start       int
	end         int
	headingPath []string
}

// Chunk splits a document into passages. Empty documents yield zero chunks;
// documents no longer than the target size yield exactly one chunk.
func (c *Chunker) Chunk(doc models.SourceDocument) []models.Chunk {
	text := doc.Text
	if len(text) == 0 {
		return nil
	}

	if len(text) <= c.targetSize {
		return []models.Chunk{{
			Text:          text,
			DocumentID:    doc.DocumentID,
			SequenceIndex: 0,
			Span:          models.CharSpan{Start: 0, End: len(text)},
		}}
	}

	var chunks []models.Chunk
	seq := 0
	for _, sec := range splitSections(text) {
		for _, span := range c.windowSpans(sec.start, sec.end) {
			chunks = append(chunks, models.Chunk{
				Text:          text[span.Start:span.End],
				DocumentID:    doc.DocumentID,
				SequenceIndex: seq,
				HeadingPath:   append([]string(nil), sec.headingPath...),
				Span:          span,
			})
			seq++
		}
	}
	return chunks
}

// windowSpans applies the size-fallback stage: a segment longer than the
// target size is cut with a sliding window, sharing overlap bytes between
// consecutive chunks to preserve local context across a cut.
func (c *Chunker) windowSpans(start, end int) []models.CharSpan {
	if end-start <= c.targetSize {
		return []models.CharSpan{{Start: start, End: end}}
	}

	var spans []models.CharSpan
	step := c.targetSize - c.overlap
	for pos := start; pos < end; pos += step {
		spanEnd := pos + c.targetSize
		if spanEnd >= end {
			spans = append(spans, models.CharSpan{Start: pos, End: end})
			break
		}
		spans = append(spans, models.CharSpan{Start: pos, End: spanEnd})
	}
	return spans
}

// splitSections cuts the text at markdown ATX headings, tracking the heading
// path for each section. Headings inside fenced code blocks are ignored.
// Sections partition the text exactly: concatenating them in order
// reproduces the input.
func splitSections(text string) []section {
	var sections []section

	type frame struct {
		level int
		title string
	}
	var stack []frame

	secStart := 0
	var secPath []string
	inFence := false
	pos := 0

	flush := func(end int) {
		if end > secStart {
			sections = append(sections, section{start: secStart, end: end, headingPath: secPath})
		}
	}

	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		var line string
		next := 0
		if lineEnd == -1 {
			line = text[pos:]
			next = len(text)
		} else {
			line = text[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}

		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		} else if !inFence {
			if m := headingRe.FindStringSubmatch(line); m != nil {
				flush(pos)
				level := len(m[1])
				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, frame{level: level, title: m[2]})

				path := make([]string, len(stack))
				for i, f := range stack {
					path[i] = f.title
				}
				secStart = pos
				secPath = path
			}
		}
		pos = next
	}
	flush(len(text))

	return sections
}

// Reconstruct rebuilds the original document text from chunks ordered by
// SequenceIndex, dropping the overlapped prefix of each window chunk.
func Reconstruct(chunks []models.Chunk) string {
	var sb strings.Builder
	prevEnd := 0
	for _, ch := range chunks {
		text := ch.Text
		if ch.Span.Start < prevEnd {
			cut := prevEnd - ch.Span.Start
			if cut >= len(text) {
				continue
			}
			text = text[cut:]
		}
		sb.WriteString(text)
		if ch.Span.End > prevEnd {
			prevEnd = ch.Span.End
		}
	}
	return sb.String()
}
