package grid

import "sheetlens/internal/domain"

// Profile computes the structural summary of a sheet. Density is the share
// of value-bearing cells over the full extent, zero when the sheet has no
// extent at all.
func Profile(s *Sheet) domain.SheetProfile {
	nonEmpty := 0
	for _, row := range s.rows {
		for _, v := range row {
			if v != "" {
				nonEmpty++
			}
		}
	}

	density := 0.0
	if s.maxRow > 0 && s.maxCol > 0 {
		density = float64(nonEmpty) / float64(s.maxRow*s.maxCol)
	}

	return domain.SheetProfile{
		MaxRow:         s.maxRow,
		MaxColumn:      s.maxCol,
		DataDensity:    density,
		NonEmptyCells:  nonEmpty,
		MergedCells:    len(s.merges),
		HasExcelTables: s.tableCount > 0,
		ExcelTables:    s.tableCount,
	}
}

// ProfileAll profiles every sheet of a workbook, keyed by sheet name.
func ProfileAll(w *Workbook) map[string]domain.SheetProfile {
	profiles := make(map[string]domain.SheetProfile, len(w.sheets))
	for _, s := range w.sheets {
		profiles[s.name] = Profile(s)
	}
	return profiles
}
