// Package report turns a finished batch run into deliverable output: the
// JSON price file users download, and a table for terminals.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
)

// ContentType of exported artifacts.
const ContentType = "application/json"

// Artifact is a named buffer ready to be delivered (saved, downloaded, ...).
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Filename returns the export name for the given day: yugioh-prices-YYYY-MM-DD.json.
func Filename(day time.Time) string {
	return fmt.Sprintf("yugioh-prices-%s.json", day.UTC().Format("2006-01-02"))
}

// Exporter serializes reports and announces each export on its sink.
type Exporter struct {
	sink notify.Sink
	now  func() time.Time
}

// NewExporter creates an Exporter. sink may be nil.
func NewExporter(sink notify.Sink) *Exporter {
	if sink == nil {
		sink = notify.Discard
	}
	return &Exporter{sink: sink, now: time.Now}
}

// Export renders the entries as a pretty-printed JSON array of
// {card_name, price}. The report is not modified.
func (e *Exporter) Export(report *model.Report) (*Artifact, error) {
	entries := report.Entries
	if entries == nil {
		entries = []model.ResultEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	artifact := &Artifact{
		Filename:    Filename(e.now()),
		ContentType: ContentType,
		Data:        bytes.TrimRight(buf.Bytes(), "\n"),
	}

	e.sink.Notify(notify.Notification{
		Kind:    notify.KindExportComplete,
		Title:   "JSON file generated",
		Message: "Your price data has been exported as " + artifact.Filename,
	})

	return artifact, nil
}

// Parse reads an exported artifact back into entries.
func Parse(data []byte) ([]model.ResultEntry, error) {
	var entries []model.ResultEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return entries, nil
}

// Save writes the artifact into dir and returns the full path.
func Save(dir string, artifact *Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
