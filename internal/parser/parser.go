// Package parser extracts plain text from uploaded document formats. The
// ingestion pipeline treats it as an external collaborator: bytes in,
// opaque UTF-8 string out.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kotae-ai/kotae/internal/models"
)

// Parser turns raw document bytes into plain text.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// SupportedExtensions lists the formats Parse handles natively. Files with
// other extensions are treated as plain text.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
}

// Parse extracts text from content based on the filename's extension.
// Failures are reported as parse errors (models.ErrParse).
func (p *Parser) Parse(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	text, err := parseBytes(content, ext)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", models.ErrParse, filename, err)
	}
	return text, nil
}

func parseBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return parsePDF(content)
	case ".docx":
		return parseDOCX(content)
	case ".xlsx":
		return parseXLSX(content)
	default:
		// Plain text formats and unknown extensions.
		return parsePlain(content)
	}
}
