package export

import (
	"fmt"
	"sort"
	"strings"
)

// US Letter in points.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// Margins are measured from the page edge to the first label, in points.
type Margins struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// LabelTemplate describes a sheet of labels. CellWidth and CellHeight are
// the pitch between label origins; LabelWidth and LabelHeight are the
// printable label itself.
type LabelTemplate struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Columns     int     `json:"columns"`
	Rows        int     `json:"rows"`
	CellWidth   float64 `json:"cellWidth"`
	CellHeight  float64 `json:"cellHeight"`
	LabelWidth  float64 `json:"labelWidth"`
	LabelHeight float64 `json:"labelHeight"`
	Margins     Margins `json:"margins"`
}

var templates = map[string]LabelTemplate{
	"avery-5160": {
		Code: "avery-5160", Name: "Avery 5160 Address (30 per sheet)",
		Columns: 3, Rows: 10,
		CellWidth: 198, CellHeight: 72,
		LabelWidth: 189, LabelHeight: 72,
		Margins: Margins{Top: 36, Left: 13.5},
	},
	"avery-5161": {
		Code: "avery-5161", Name: "Avery 5161 Address (20 per sheet)",
		Columns: 2, Rows: 10,
		CellWidth: 301.5, CellHeight: 72,
		LabelWidth: 288, LabelHeight: 72,
		Margins: Margins{Top: 36, Left: 11.25},
	},
	"avery-5163": {
		Code: "avery-5163", Name: "Avery 5163 Shipping (10 per sheet)",
		Columns: 2, Rows: 5,
		CellWidth: 301.5, CellHeight: 144,
		LabelWidth: 288, LabelHeight: 144,
		Margins: Margins{Top: 36, Left: 11.25},
	},
	"avery-5167": {
		Code: "avery-5167", Name: "Avery 5167 Return Address (80 per sheet)",
		Columns: 4, Rows: 20,
		CellWidth: 148.5, CellHeight: 36,
		LabelWidth: 126, LabelHeight: 36,
		Margins: Margins{Top: 36, Left: 21.6},
	},
}

// DefaultTemplate is the 30-up address sheet.
const DefaultTemplate = "avery-5160"

// Lookup finds a template by code. "5160" and "Avery-5160" both work.
func Lookup(code string) (LabelTemplate, error) {
	key := strings.ToLower(strings.TrimSpace(code))
	if key == "" {
		key = DefaultTemplate
	}
	if !strings.HasPrefix(key, "avery-") {
		key = "avery-" + key
	}
	t, ok := templates[key]
	if !ok {
		return LabelTemplate{}, fmt.Errorf("unknown label template %q", code)
	}
	return t, nil
}

// Templates lists the presets ordered by code.
func Templates() []LabelTemplate {
	out := make([]LabelTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// PerPage is the number of labels on one sheet.
func (t LabelTemplate) PerPage() int {
	return t.Columns * t.Rows
}
