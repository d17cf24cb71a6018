// Package names turns raw user input into candidate card names.
// Both adapters keep the input order and never deduplicate: a repeated name
// is looked up, and reported, once per occurrence.
package names

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrFileFormat is returned for uploads that are not CSV-like.
var ErrFileFormat = errors.New("invalid file format: a CSV file is required")

// IsList reports whether free text should take the batch path. Input without
// a comma is a single-name search.
func IsList(text string) bool {
	return strings.Contains(text, ",")
}

// SplitList splits free text on commas, trimming each piece and dropping
// empty ones.
func SplitList(text string) []string {
	return Clean(strings.Split(text, ","))
}

// SplitLines splits file content into one name per line, dropping blank lines.
func SplitLines(text string) []string {
	return Clean(strings.Split(text, "\n"))
}

// ReadLines is the streaming form of SplitLines.
func ReadLines(r io.Reader) ([]string, error) {
	names := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading names: %w", err)
	}
	return names, nil
}

// ValidateUpload accepts a file whose name ends in .csv or whose content type
// mentions csv.
func ValidateUpload(filename, contentType string) error {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil
	}
	if strings.Contains(strings.ToLower(contentType), "csv") {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrFileFormat, filepath.Base(filename))
}

// Clean trims every name and drops the empty ones, keeping order.
func Clean(pieces []string) []string {
	names := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		name := strings.TrimSpace(piece)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
