// Package grid loads spreadsheet workbooks into an immutable 1-based grid
// snapshot and derives the structural profile and text representation that
// the classification pipeline consumes.
package grid

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"sheetlens/internal/domain"
)

// Workbook is a read-only snapshot of a spreadsheet file. It is built once
// per request and discarded when the request ends.
type Workbook struct {
	file   *excelize.File
	sheets []*Sheet
	styles map[int]styleFlags // style ID -> resolved flags
}

// Sheet holds the cell values, merge ranges and table count of one worksheet.
// Rows and columns are 1-based.
type Sheet struct {
	wb         *Workbook
	name       string
	rows       [][]string
	maxRow     int
	maxCol     int
	merges     []MergeRange
	mergeIndex map[cellKey]int // (row,col) -> index into merges
	tableCount int
}

// MergeRange is a rectangular merged region. The anchor cell is
// (MinRow, MinCol); it is the only cell of the range that carries a value.
type MergeRange struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

// Cell is the resolved view of a single grid position.
type Cell struct {
	Value    string
	HasValue bool
	Bold     bool
	Filled   bool
	Merged   bool // cell belongs to a merge range
	Anchor   bool // cell is the top-left of its merge range
}

type cellKey struct {
	row, col int
}

type styleFlags struct {
	bold   bool
	filled bool
}

// Load parses workbook bytes into a Workbook snapshot. Any failure to read
// the file or one of its sheets is a load error for the whole workbook.
func Load(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWorkbookLoad, err)
	}

	wb := &Workbook{
		file:   f,
		styles: make(map[int]styleFlags),
	}
	for _, name := range f.GetSheetList() {
		sheet, err := loadSheet(wb, name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: sheet %q: %v", domain.ErrWorkbookLoad, name, err)
		}
		wb.sheets = append(wb.sheets, sheet)
	}
	return wb, nil
}

func loadSheet(wb *Workbook, name string) (*Sheet, error) {
	rows, err := wb.file.GetRows(name)
	if err != nil {
		return nil, err
	}

	s := &Sheet{
		wb:         wb,
		name:       name,
		rows:       rows,
		maxRow:     len(rows),
		mergeIndex: make(map[cellKey]int),
	}
	for _, row := range rows {
		if len(row) > s.maxCol {
			s.maxCol = len(row)
		}
	}

	mcs, err := wb.file.GetMergeCells(name)
	if err != nil {
		return nil, err
	}
	for _, mc := range mcs {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, err
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		mr := MergeRange{MinRow: r1, MinCol: c1, MaxRow: r2, MaxCol: c2}
		idx := len(s.merges)
		s.merges = append(s.merges, mr)
		for r := mr.MinRow; r <= mr.MaxRow; r++ {
			for c := mr.MinCol; c <= mr.MaxCol; c++ {
				s.mergeIndex[cellKey{r, c}] = idx
			}
		}
		// A merge range can reach past the value-bearing extent.
		if mr.MaxRow > s.maxRow {
			s.maxRow = mr.MaxRow
		}
		if mr.MaxCol > s.maxCol {
			s.maxCol = mr.MaxCol
		}
	}

	tables, err := wb.file.GetTables(name)
	if err != nil {
		return nil, err
	}
	s.tableCount = len(tables)

	return s, nil
}

// Sheets returns the worksheets in workbook order.
func (w *Workbook) Sheets() []*Sheet { return w.sheets }

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.name
	}
	return names
}

// Close releases the underlying file.
func (w *Workbook) Close() error { return w.file.Close() }

// styleAt resolves the bold and fill flags for a cell, caching per style ID
// so repeated styles are looked up once per workbook.
func (w *Workbook) styleAt(sheet string, row, col int) (bold, filled bool) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, false
	}
	styleID, err := w.file.GetCellStyle(sheet, axis)
	if err != nil {
		return false, false
	}
	if flags, ok := w.styles[styleID]; ok {
		return flags.bold, flags.filled
	}
	style, err := w.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false, false
	}
	var flags styleFlags
	if style.Font != nil {
		flags.bold = style.Font.Bold
	}
	flags.filled = style.Fill.Type == "pattern" && style.Fill.Pattern > 0
	w.styles[styleID] = flags
	return flags.bold, flags.filled
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// MaxRow returns the extent of the sheet in rows, covering value-bearing
// cells and merge ranges.
func (s *Sheet) MaxRow() int { return s.maxRow }

// MaxColumn returns the extent of the sheet in columns.
func (s *Sheet) MaxColumn() int { return s.maxCol }

// MergeRanges returns the merge ranges declared on the sheet.
func (s *Sheet) MergeRanges() []MergeRange { return s.merges }

// TableCount returns the number of native tables on the sheet.
func (s *Sheet) TableCount() int { return s.tableCount }

// CellAt resolves the cell at the given 1-based position. Positions outside
// the stored values read as empty, so callers can walk the full extent.
func (s *Sheet) CellAt(row, col int) Cell {
	var cell Cell
	if row >= 1 && row <= len(s.rows) {
		r := s.rows[row-1]
		if col >= 1 && col <= len(r) {
			cell.Value = r[col-1]
		}
	}
	cell.HasValue = cell.Value != ""
	if idx, ok := s.mergeIndex[cellKey{row, col}]; ok {
		mr := s.merges[idx]
		cell.Merged = true
		cell.Anchor = row == mr.MinRow && col == mr.MinCol
	}
	cell.Bold, cell.Filled = s.wb.styleAt(s.name, row, col)
	return cell
}
