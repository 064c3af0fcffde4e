package doctext

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Extractor turns an uploaded file into plain text ready for chunking.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Plain handles text-native formats. Binary formats are the job of an
// external extraction step and are rejected here.
type Plain struct{}

var _ Extractor = (*Plain)(nil)

func NewPlain() *Plain {
	return &Plain{}
}

func (p *Plain) Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return Normalize(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Normalize cleans extracted text: drops null and replacement runes,
// unifies line endings, strips each line and collapses runs of blank
// lines down to one.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "�", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
