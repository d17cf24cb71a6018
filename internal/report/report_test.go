package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
)

func sampleReport() *model.Report {
	return &model.Report{
		ID:        "run-1",
		Status:    model.RunPartial,
		Total:     3,
		Succeeded: 2,
		NotFound:  1,
		Entries: []model.ResultEntry{
			{CardName: "Blue-Eyes White Dragon", Price: "0.25"},
			{CardName: "Dark Magician", Price: "0.40"},
			{CardName: "Nonexistent Card XYZ", Price: model.PriceNotFound},
		},
	}
}

func fixedExporter(sink notify.Sink) *Exporter {
	e := NewExporter(sink)
	e.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExport_RoundTrip(t *testing.T) {
	r := sampleReport()
	artifact, err := fixedExporter(nil).Export(r)
	require.NoError(t, err)

	entries, err := Parse(artifact.Data)
	require.NoError(t, err)
	if diff := cmp.Diff(r.Entries, entries); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_FormatAndName(t *testing.T) {
	sink := notify.NewRecorder()
	r := sampleReport()
	before := append([]model.ResultEntry(nil), r.Entries...)

	artifact, err := fixedExporter(sink).Export(r)
	require.NoError(t, err)

	require.Equal(t, "yugioh-prices-2026-10-18.json", artifact.Filename)
	require.Equal(t, "application/json", artifact.ContentType)

	want := `[
  {
    "card_name": "Blue-Eyes White Dragon",
    "price": "0.25"
  },
  {
    "card_name": "Dark Magician",
    "price": "0.40"
  },
  {
    "card_name": "Nonexistent Card XYZ",
    "price": "Not found"
  }
]`
	require.Equal(t, want, string(artifact.Data))
	require.Equal(t, before, r.Entries)
	require.Equal(t, []notify.Kind{notify.KindExportComplete}, sink.Kinds())
}

func TestExport_EmptyReportIsEmptyArray(t *testing.T) {
	artifact, err := fixedExporter(nil).Export(&model.Report{})
	require.NoError(t, err)
	require.Equal(t, "[]", string(artifact.Data))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"card_name":`))
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	artifact := &Artifact{Filename: "yugioh-prices-2026-10-18.json", ContentType: ContentType, Data: []byte("[]")}

	path, err := Save(dir, artifact)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, artifact.Filename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleReport())
	require.Contains(t, out, "Dark Magician")
	require.Contains(t, strings.ToLower(out), "1 not found or errors")
}

func TestRenderRuns(t *testing.T) {
	run := sampleReport()
	run.Source = model.SourceFile
	run.StartedAt = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	out := RenderRuns([]model.Report{*run})
	require.Contains(t, out, "run-1")
	require.Contains(t, out, "partial")
	require.Contains(t, out, "file")
}

func TestRenderCards(t *testing.T) {
	out := RenderCards([]model.Card{{
		Name:   "Kuriboh",
		Type:   "Effect Monster",
		Prices: []model.CardPrice{{TCGPlayer: "12.5"}},
	}})
	require.Contains(t, out, "Kuriboh")
	require.Contains(t, out, "$12.50")
	require.Contains(t, out, "N/A")
}
