// Package chunker partitions a transcript into ordered, non-overlapping
// segments that each fit one language-model prompt.
//
// Chunks never split a word. Joining the chunks back together, separators
// included, reproduces the transcript byte for byte. A single word longer
// than the budget becomes its own oversized chunk rather than an error.
package chunker

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unit is what the chunk budget counts.
type Unit int

const (
	// Words counts separator-delimited words.
	Words Unit = iota
	// Runes counts characters of the chunk text, inner separators included.
	Runes
)

func (u Unit) String() string {
	if u == Runes {
		return "runes"
	}
	return "words"
}

// ErrInvalidBudget is returned when MaxUnits is not positive.
var ErrInvalidBudget = errors.New("chunk budget must be positive")

// ParseUnit maps a config value ("words", "runes") to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "", "words":
		return Words, nil
	case "runes", "chars":
		return Runes, nil
	default:
		return Words, errors.New("unknown chunk unit " + s)
	}
}

// Options controls how Split partitions a transcript.
type Options struct {
	MaxUnits int
	Unit     Unit
	// IsSeparator reports word boundaries. Defaults to unicode.IsSpace.
	IsSeparator func(r rune) bool
}

// Chunk is one contiguous slice of a transcript.
type Chunk struct {
	Index int
	// Lead holds separators preceding the first word. Only set on the first chunk.
	Lead string
	// Text runs from the first word to the last word of the chunk.
	Text string
	// Sep holds the separators between this chunk and the next one, or the
	// trailing separators of the transcript for the last chunk.
	Sep   string
	Words int
	Runes int
}

// Size returns the chunk length in the given unit.
func (c Chunk) Size(u Unit) int {
	if u == Runes {
		return c.Runes
	}
	return c.Words
}

type span struct {
	start, end int
}

// Split partitions transcript according to opts. An empty transcript yields
// no chunks; a transcript made only of separators yields one empty chunk
// carrying them in Lead.
func Split(transcript string, opts Options) ([]Chunk, error) {
	if opts.MaxUnits <= 0 {
		return nil, ErrInvalidBudget
	}
	if transcript == "" {
		return nil, nil
	}

	isSep := opts.IsSeparator
	if isSep == nil {
		isSep = unicode.IsSpace
	}

	words := tokenize(transcript, isSep)
	if len(words) == 0 {
		return []Chunk{{Lead: transcript}}, nil
	}

	var chunks []Chunk
	first := 0
	size := unitSize(transcript, words[0], opts.Unit)

	for i := 1; i < len(words); i++ {
		add := unitSize(transcript, words[i], opts.Unit)
		if opts.Unit == Runes {
			add += utf8.RuneCountInString(transcript[words[i-1].end:words[i].start])
		}

		if size+add > opts.MaxUnits {
			chunks = append(chunks, build(transcript, words, first, i-1, len(chunks)))
			first = i
			size = unitSize(transcript, words[i], opts.Unit)
			continue
		}
		size += add
	}
	chunks = append(chunks, build(transcript, words, first, len(words)-1, len(chunks)))

	return chunks, nil
}

// Join reassembles chunks in order, separators included.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Lead)
		b.WriteString(c.Text)
		b.WriteString(c.Sep)
	}
	return b.String()
}

// tokenize returns the byte spans of every word in s.
func tokenize(s string, isSep func(rune) bool) []span {
	var words []span
	start := -1
	for i, r := range s {
		if isSep(r) {
			if start >= 0 {
				words = append(words, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, span{start, len(s)})
	}
	return words
}

func unitSize(s string, w span, u Unit) int {
	if u == Runes {
		return utf8.RuneCountInString(s[w.start:w.end])
	}
	return 1
}

// build makes the chunk covering words[from..to].
func build(s string, words []span, from, to, index int) Chunk {
	text := s[words[from].start:words[to].end]

	sepEnd := len(s)
	if to+1 < len(words) {
		sepEnd = words[to+1].start
	}

	c := Chunk{
		Index: index,
		Text:  text,
		Sep:   s[words[to].end:sepEnd],
		Words: to - from + 1,
		Runes: utf8.RuneCountInString(text),
	}
	if index == 0 {
		c.Lead = s[:words[from].start]
	}
	return c
}
