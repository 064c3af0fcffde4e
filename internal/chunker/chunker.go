package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Config controls how documents are segmented. Sizes are in runes, not
// bytes, so multibyte text never gets cut mid-character.
type Config struct {
	TargetSize int
	Overlap    int
	Separators []string
}

// Piece is one ordered chunk of a document.
type Piece struct {
	Text  string
	Index int
}

type Splitter struct {
	cfg Config
}

func New(cfg Config) (*Splitter, error) {
	if cfg.TargetSize <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive", models.ErrInvalidConfig)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.TargetSize {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < target size", models.ErrInvalidConfig)
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = []string{"\n\n", "\n", " ", ""}
	}
	return &Splitter{cfg: cfg}, nil
}

// Split segments text into ordered pieces. Separators are tried coarsest
// first; any part still over TargetSize is re-split with the next finer
// separator, bottoming out at a raw rune cut. Parts that fit are packed
// greedily back together so a paragraph of short sentences stays one
// chunk instead of many fragments. Each piece after the first starts
// with the trailing Overlap runes of the piece before it, so a piece may
// exceed TargetSize by at most Overlap.
func (s *Splitter) Split(text string) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrEmptyDocument
	}
	parts := s.splitRecursive(text, s.cfg.Separators)

	pieces := make([]Piece, 0, len(parts))
	prev := ""
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if s.cfg.Overlap > 0 && prev != "" {
			part = tailRunes(prev, s.cfg.Overlap) + part
		}
		pieces = append(pieces, Piece{Text: part, Index: len(pieces)})
		prev = part
	}
	return pieces, nil
}

func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.cfg.TargetSize {
		return []string{text}
	}
	sep := seps[0]
	rest := seps[1:]
	if sep == "" {
		return cutRunes(text, s.cfg.TargetSize)
	}

	splits := strings.Split(text, sep)
	sepLen := utf8.RuneCountInString(sep)

	var out []string
	var buf []string
	bufLen := 0
	flush := func() {
		if len(buf) > 0 {
			out = append(out, strings.Join(buf, sep))
			buf = buf[:0]
			bufLen = 0
		}
	}
	for _, part := range splits {
		partLen := utf8.RuneCountInString(part)
		if partLen > s.cfg.TargetSize {
			// too big for this level, descend
			flush()
			if len(rest) == 0 {
				out = append(out, cutRunes(part, s.cfg.TargetSize)...)
			} else {
				out = append(out, s.splitRecursive(part, rest)...)
			}
			continue
		}
		add := partLen
		if len(buf) > 0 {
			add += sepLen
		}
		if bufLen+add > s.cfg.TargetSize {
			flush()
			add = partLen
		}
		buf = append(buf, part)
		bufLen += add
	}
	flush()
	return out
}

func cutRunes(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
