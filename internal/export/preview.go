package export

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/referral-labels/internal/model"
)

// RenderPreview draws each sheet as a table of label cells. Only rows that
// hold at least one label are drawn. plain selects an ASCII border for
// terminals that cannot show box-drawing characters.
func RenderPreview(labels []model.MailingLabelData, tmpl LabelTemplate, opts Options, plain bool) string {
	pages := tmpl.PageCount(len(labels))
	if pages == 0 {
		return "No labels to preview.\n"
	}

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		start := (page - 1) * tmpl.PerPage()
		end := min(start+tmpl.PerPage(), len(labels))

		tw := table.NewWriter()
		if plain {
			tw.SetStyle(table.StyleDefault)
		} else {
			tw.SetStyle(table.StyleRounded)
		}
		tw.Style().Options.SeparateRows = true
		tw.SetTitle(fmt.Sprintf("%s - page %d of %d", tmpl.Name, page, pages))

		configs := make([]table.ColumnConfig, tmpl.Columns)
		for c := range configs {
			configs[c] = table.ColumnConfig{
				Number:   c + 1,
				Align:    text.AlignLeft,
				WidthMax: previewWidth(tmpl),
			}
		}
		tw.SetColumnConfigs(configs)

		var row table.Row
		for i := start; i < end; i++ {
			pos := tmpl.Locate(i)
			if pos.Col == 0 && row != nil {
				tw.AppendRow(row)
				row = nil
			}
			if row == nil {
				row = make(table.Row, tmpl.Columns)
				for c := range row {
					row[c] = ""
				}
			}
			row[pos.Col] = strings.Join(LabelLines(labels[i], opts), "\n")
		}
		if row != nil {
			tw.AppendRow(row)
		}

		b.WriteString(tw.Render())
		b.WriteString("\n")
	}
	return b.String()
}

// previewWidth scales the column to the label width, roughly one character
// per 6 points.
func previewWidth(t LabelTemplate) int {
	return max(12, int(t.LabelWidth/6))
}
