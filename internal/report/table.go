package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fabio1shot/card-price-extractor/internal/model"
)

// Format is a terminal output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// RenderTable renders a report as a rounded table with a summary footer.
func RenderTable(r *model.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Card", "Price"})

	for i, entry := range r.Entries {
		t.AppendRow(table.Row{i + 1, entry.CardName, entry.Price})
	}

	summary := fmt.Sprintf("%d found", r.Succeeded)
	if r.Misses() > 0 {
		summary += fmt.Sprintf(", %d not found or errors", r.Misses())
	}
	t.AppendFooter(table.Row{"", string(r.Status), summary})

	return t.Render()
}

// RenderCards renders search results with every marketplace price.
func RenderCards(cards []model.Card) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Card", "Type", "TCGPlayer", "Cardmarket", "eBay", "Amazon", "CoolStuffInc"})

	for _, card := range cards {
		row := table.Row{card.Name, card.Type}
		for _, q := range card.Quotes() {
			row = append(row, q.Formatted)
		}
		t.AppendRow(row)
	}

	return t.Render()
}

// RenderSets renders the set catalogue.
func RenderSets(sets []model.CardSetInfo) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Code", "Set", "Cards", "Released"})
	for _, s := range sets {
		t.AppendRow(table.Row{s.Code, s.Name, s.NumOfCards, s.TCGDate})
	}
	return t.Render()
}

// RenderRuns renders batch history, newest first as given.
func RenderRuns(runs []model.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Started", "Source", "Status", "Cards", "Found", "Missed"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Source,
			r.Status,
			r.Total,
			r.Succeeded,
			r.Misses(),
		})
	}
	return t.Render()
}
