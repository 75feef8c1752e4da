package export

// Position places one label on a sheet. Page is 1-based; Row and Col are
// 0-based; X and Y are the label's top-left corner in points.
type Position struct {
	Page int
	Row  int
	Col  int
	X    float64
	Y    float64
}

// Locate returns where the label at index (0-based, in export order) goes.
func (t LabelTemplate) Locate(index int) Position {
	perPage := t.PerPage()
	slot := index % perPage
	row := slot / t.Columns
	col := slot % t.Columns
	return Position{
		Page: index/perPage + 1,
		Row:  row,
		Col:  col,
		X:    t.Margins.Left + float64(col)*t.CellWidth,
		Y:    t.Margins.Top + float64(row)*t.CellHeight,
	}
}

// PageCount is the number of sheets needed for n labels.
func (t LabelTemplate) PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	perPage := t.PerPage()
	return (n + perPage - 1) / perPage
}
