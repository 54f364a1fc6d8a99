package pipeline

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSeparators are tried in order, from paragraph breaks down to
// single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// span is a half-open byte range of the text being split
type span struct {
	start int
	end   int
}

// RecursiveSplitter creates a chunker that splits on the first separator
// present in the text, recursively splitting oversized pieces with the
// remaining separators, and merges pieces into chunks of at most chunkSize
// characters. Up to overlap characters of trailing pieces are repeated at
// the start of the next chunk.
func RecursiveSplitter(chunkSize int, overlap int) ChunkFunc {
	return func(text string) ([]TextChunk, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}
		if overlap < 0 {
			return nil, fmt.Errorf("chunk overlap must not be negative")
		}
		if overlap >= chunkSize {
			return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, chunkSize)
		}

		if strings.TrimSpace(text) == "" {
			return []TextChunk{}, nil
		}

		s := &splitter{text: text, chunkSize: chunkSize, overlap: overlap}
		spans := s.split(span{0, len(text)}, DefaultSeparators)

		chunks := make([]TextChunk, 0, len(spans))
		for _, sp := range spans {
			sp = s.trim(sp)
			if sp.start >= sp.end {
				continue
			}
			chunks = append(chunks, TextChunk{
				Content:  text[sp.start:sp.end],
				StartPos: sp.start,
				EndPos:   sp.end,
			})
		}
		return chunks, nil
	}
}

type splitter struct {
	text      string
	chunkSize int
	overlap   int
}

func (s *splitter) length(sp span) int {
	return utf8.RuneCountInString(s.text[sp.start:sp.end])
}

func (s *splitter) split(sp span, separators []string) []span {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(s.text[sp.start:sp.end], sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var result []span
	var good []span
	for _, piece := range s.cut(sp, separator) {
		if s.length(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			result = append(result, s.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			result = append(result, piece)
		} else {
			result = append(result, s.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		result = append(result, s.merge(good)...)
	}
	return result
}

// cut splits a span at every occurrence of separator. The separator stays
// at the start of the following piece so pieces remain contiguous.
func (s *splitter) cut(sp span, separator string) []span {
	var pieces []span
	if separator == "" {
		for i := sp.start; i < sp.end; {
			_, size := utf8.DecodeRuneInString(s.text[i:sp.end])
			pieces = append(pieces, span{i, i + size})
			i += size
		}
		return pieces
	}

	sub := s.text[sp.start:sp.end]
	start, offset := 0, 0
	for {
		idx := strings.Index(sub[offset:], separator)
		if idx < 0 {
			break
		}
		cutAt := offset + idx
		if cutAt > start {
			pieces = append(pieces, span{sp.start + start, sp.start + cutAt})
			start = cutAt
		}
		offset = cutAt + len(separator)
	}
	if start < len(sub) {
		pieces = append(pieces, span{sp.start + start, sp.end})
	}
	return pieces
}

// merge joins consecutive pieces into chunks no longer than chunkSize,
// keeping up to overlap characters of the previous chunk.
func (s *splitter) merge(pieces []span) []span {
	var chunks []span
	var current []span
	total := 0

	for _, piece := range pieces {
		n := s.length(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			chunks = append(chunks, span{current[0].start, current[len(current)-1].end})

			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= s.length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if len(current) > 0 {
		chunks = append(chunks, span{current[0].start, current[len(current)-1].end})
	}
	return chunks
}

func (s *splitter) trim(sp span) span {
	chunk := s.text[sp.start:sp.end]
	left := len(chunk) - len(strings.TrimLeftFunc(chunk, unicode.IsSpace))
	right := len(chunk) - len(strings.TrimRightFunc(chunk, unicode.IsSpace))
	if left == len(chunk) {
		return span{sp.start, sp.start}
	}
	return span{sp.start + left, sp.end - right}
}
