// Package ingest turns uploaded documents into the plain text the analyzer
// consumes.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedType is returned for extensions other than txt, md, pdf and docx
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrNoText is returned when a document holds no extractable text
	ErrNoText = errors.New("no extractable text")
)

// Document is a loaded input file
type Document struct {
	Name   string
	Format string
	Text   string
}

// Formats lists the accepted extensions without the leading dot
func Formats() []string {
	return []string{"txt", "md", "pdf", "docx"}
}

// Load reads and parses the file at path
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), raw)
}

// Parse extracts text from raw according to the extension of name
func Parse(name string, raw []byte) (*Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	var (
		text string
		err  error
	)
	switch format {
	case "txt":
		text, err = parseText(raw)
	case "md", "markdown":
		format = "md"
		text = parseMarkdown(raw)
	case "pdf":
		text, err = parsePDF(raw)
	case "docx":
		text, err = parseDOCX(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNoText)
	}

	return &Document{
		Name:   strings.TrimSuffix(name, filepath.Ext(name)),
		Format: format,
		Text:   text,
	}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return string(raw), nil
}

// normalizeWhitespace collapses runs of spaces inside lines and drops
// blank lines
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
