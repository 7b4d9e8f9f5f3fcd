// Package ingest implements the ingestion pipeline (spec component
// C5): dedup, redaction, chunking, graph derivation, embedding, vector
// store upsert, and identity-extraction dispatch for every item a
// channel plugin hands it.
package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ChunkConfig bounds the chunking algorithm. Defaults match the
// spec's default_k-style tunables, overridable via C1 settings.
type ChunkConfig struct {
	MaxChars     int
	OverlapChars int
}

// DefaultChunkConfig is used when the caller doesn't have a settings
// store handy (e.g. tests).
var DefaultChunkConfig = ChunkConfig{MaxChars: 4500, OverlapChars: 200}

// wordCharPattern is used to reject chunks that are mostly punctuation
// or garbage noise — at least 40% of characters must look like
// ordinary prose.
var wordCharPattern = regexp.MustCompile(`[\w\s.,;:!?'"-]`)

func wordCharRatio(s string) float64 {
	if s == "" {
		return 1
	}
	total := utf8.RuneCountInString(s)
	matches := 0
	for _, r := range s {
		if wordCharPattern.MatchString(string(r)) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// Chunk splits text into pieces no longer than cfg.MaxChars, falling
// back through paragraph, then sentence, then hard-character
// boundaries — overlap is only applied across hard splits, since
// paragraph and sentence boundaries are already natural resumption
// points and don't need padding to stay coherent. Chunks whose
// word-character ratio falls below 0.40 are dropped as noise.
func Chunk(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig
	}
	if utf8.RuneCountInString(text) <= cfg.MaxChars {
		return filterChunks([]string{text})
	}

	paragraphs := splitParagraphs(text, cfg.MaxChars)
	var out []string
	for _, p := range paragraphs {
		if utf8.RuneCountInString(p) <= cfg.MaxChars {
			out = append(out, p)
			continue
		}
		sentences := splitSentences(p, cfg.MaxChars)
		for _, s := range sentences {
			if utf8.RuneCountInString(s) <= cfg.MaxChars {
				out = append(out, s)
				continue
			}
			out = append(out, hardSplit(s, cfg.MaxChars, cfg.OverlapChars)...)
		}
	}
	return filterChunks(out)
}

func filterChunks(chunks []string) []string {
	var out []string
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if wordCharRatio(c) < 0.40 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// splitParagraphs greedily packs consecutive "\n\n"-delimited
// paragraphs into groups up to maxChars, so a single short chunk
// isn't produced per paragraph when several would fit together.
func splitParagraphs(text string, maxChars int) []string {
	paras := strings.Split(text, "\n\n")
	var out []string
	var cur strings.Builder
	for _, p := range paras {
		if cur.Len() == 0 {
			cur.WriteString(p)
			continue
		}
		if utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(p) <= maxChars {
			cur.WriteString("\n\n")
			cur.WriteString(p)
		} else {
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(p)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// splitSentences greedily packs ". "-delimited sentences into groups
// up to maxChars.
func splitSentences(text string, maxChars int) []string {
	sentences := strings.Split(text, ". ")
	var out []string
	var cur strings.Builder
	for i, s := range sentences {
		piece := s
		if i < len(sentences)-1 {
			piece += ". "
		}
		if cur.Len() == 0 {
			cur.WriteString(piece)
			continue
		}
		if utf8.RuneCountInString(cur.String())+utf8.RuneCountInString(piece) <= maxChars {
			cur.WriteString(piece)
		} else {
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(piece)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// hardSplit slices text at exact rune-count boundaries, carrying
// overlapChars of trailing context from one chunk into the start of
// the next — the only place overlap is intentionally introduced,
// since a hard split can sever a sentence mid-thought.
func hardSplit(text string, maxChars, overlapChars int) []string {
	runes := []rune(text)
	if overlapChars >= maxChars {
		overlapChars = maxChars / 4
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlapChars
	}
	return out
}
