package api

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable renders entries as a plain-text table with signed changes.
func RenderTable(entries []Entry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "Name", "Score", "Change"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Rank, e.Name, formatNumber(e.Score), FormatChange(e.PointChange)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	return t.Render() + "\n"
}

// FormatChange renders a point change with an explicit sign; zero has none.
func FormatChange(v float64) string {
	if v > 0 {
		return "+" + formatNumber(v)
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
