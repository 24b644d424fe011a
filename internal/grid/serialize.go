package grid

import (
	"fmt"
	"strings"
)

// DefaultMaxRows is the row cap applied when none is configured.
const DefaultMaxRows = 20

// Serializer renders sheets into the line-oriented text form sent to the
// model. Columns are never truncated; rows are capped with a trailing notice
// naming the true row count.
type Serializer struct {
	maxRows int
}

// NewSerializer returns a serializer capped at maxRows rows per sheet.
// Values below 1 fall back to DefaultMaxRows.
func NewSerializer(maxRows int) *Serializer {
	if maxRows < 1 {
		maxRows = DefaultMaxRows
	}
	return &Serializer{maxRows: maxRows}
}

// MaxRows returns the configured row cap.
func (sz *Serializer) MaxRows() int { return sz.maxRows }

// SheetText renders one sheet, one line per row in the form
// "row{r}: | c1 | c2 | ... |".
func (sz *Serializer) SheetText(s *Sheet) string {
	shown := s.maxRow
	if shown > sz.maxRows {
		shown = sz.maxRows
	}

	var lines []string
	for r := 1; r <= shown; r++ {
		cells := make([]string, 0, s.maxCol)
		for c := 1; c <= s.maxCol; c++ {
			cells = append(cells, renderCell(s.CellAt(r, c)))
		}
		lines = append(lines, fmt.Sprintf("row%d: | %s |", r, strings.Join(cells, " | ")))
	}
	if s.maxRow > sz.maxRows {
		lines = append(lines, fmt.Sprintf("... (実際には%d行ありますが、最初の%d行のみ表示)", s.maxRow, sz.maxRows))
	}
	return strings.Join(lines, "\n")
}

// WorkbookText renders every sheet of a workbook, keyed by sheet name.
func (sz *Serializer) WorkbookText(w *Workbook) map[string]string {
	texts := make(map[string]string, len(w.sheets))
	for _, s := range w.sheets {
		texts[s.name] = sz.SheetText(s)
	}
	return texts
}

// renderCell flattens value, merge membership and formatting into the text
// for one cell. Decorations nest as fill(bold(value)), so a bold cell with a
// background renders "[BG]**text**".
func renderCell(c Cell) string {
	text := c.Value
	if !c.HasValue {
		text = "[EMPTY]"
	}
	if c.Merged && !c.Anchor {
		text = "[MERGED]"
	}
	if c.Bold {
		text = "**" + text + "**"
	}
	if c.Filled {
		text = "[BG]" + text
	}
	return text
}
