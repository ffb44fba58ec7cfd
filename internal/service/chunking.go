package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls chunking for knowledge source ingestion.
type ChunkConfig struct {
	MaxChars int
	MinChars int
}

// DefaultChunkConfig provides the bounds used in production.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		MinChars: 100,
	}
}

// Chunk is one heading-tagged fragment of a source document.
type Chunk struct {
	Heading string
	Content string
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// chunkContent splits a document into heading-aware chunks. Sections start
// at lines beginning with one to three '#' characters; a document without
// headings is one synthetic section. Sections within bounds become a single
// chunk; larger sections are packed paragraph by paragraph, with packed
// continuations re-tagged "<heading> (continued)". Chunks that end up under
// MinChars are dropped.
func chunkContent(content string, cfg ChunkConfig) []Chunk {
	clean := strings.TrimSpace(content)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var chunks []Chunk
	for _, sec := range splitSections(clean) {
		chunks = append(chunks, chunkSection(sec, cfg)...)
	}
	return chunks
}

type section struct {
	heading string
	lines   []string
}

// headingLevel returns 1..3 for a section boundary line, 0 otherwise
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n >= 1 && n <= 3 {
		return n
	}
	return 0
}

func splitSections(content string) []section {
	var sections []section
	current := section{}

	for _, line := range strings.Split(content, "\n") {
		if level := headingLevel(line); level > 0 {
			if len(current.lines) > 0 {
				sections = append(sections, current)
			}
			current = section{heading: strings.TrimSpace(line[level:])}
		}
		current.lines = append(current.lines, line)
	}
	sections = append(sections, current)

	return sections
}

func chunkSection(sec section, cfg ChunkConfig) []Chunk {
	raw := strings.TrimSpace(strings.Join(sec.lines, "\n"))
	if raw == "" {
		return nil
	}

	if len(raw) <= cfg.MaxChars {
		if len(raw) < cfg.MinChars {
			return nil
		}
		return []Chunk{{Heading: sec.heading, Content: raw}}
	}

	var units []string
	for _, p := range paragraphBreak.Split(raw, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		units = append(units, explodeParagraph(p, cfg.MaxChars)...)
	}

	var chunks []Chunk
	buffer := ""

	flush := func() {
		heading := sec.heading
		if len(chunks) > 0 && heading != "" {
			heading += " (continued)"
		}
		chunks = append(chunks, Chunk{Heading: heading, Content: buffer})
		buffer = ""
	}

	for _, unit := range units {
		if buffer == "" {
			buffer = unit
			continue
		}
		if len(buffer)+2+len(unit) > cfg.MaxChars && len(buffer) >= cfg.MinChars {
			flush()
			buffer = unit
			continue
		}
		buffer += "\n\n" + unit
	}
	if len(buffer) >= cfg.MinChars {
		flush()
	}

	return chunks
}

// explodeParagraph breaks a paragraph larger than max into sentence groups
// no larger than max. A run without sentence boundaries is kept whole, so
// content is never truncated.
func explodeParagraph(paragraph string, max int) []string {
	if len(paragraph) <= max {
		return []string{paragraph}
	}

	var pieces []string
	buffer := ""
	for _, sentence := range splitSentences(paragraph) {
		if buffer == "" {
			buffer = sentence
			continue
		}
		if len(buffer)+1+len(sentence) > max {
			pieces = append(pieces, buffer)
			buffer = sentence
			continue
		}
		buffer += " " + sentence
	}
	if buffer != "" {
		pieces = append(pieces, buffer)
	}

	return pieces
}

func splitSentences(paragraph string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(paragraph)-1; i++ {
		c := paragraph[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		next := paragraph[i+1]
		if next != ' ' && next != '\n' && next != '\t' {
			continue
		}
		if s := strings.TrimSpace(paragraph[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(paragraph[start:]); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
