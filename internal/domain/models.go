package domain

// SheetProfile summarizes the structure of a single worksheet. Field names on
// the wire match the analysis output consumed by downstream tooling.
type SheetProfile struct {
	MaxRow         int     `json:"max_row"`
	MaxColumn      int     `json:"max_column"`
	DataDensity    float64 `json:"data_density"`
	NonEmptyCells  int     `json:"non_empty_cells"`
	MergedCells    int     `json:"num_merged_cells"`
	HasExcelTables bool    `json:"has_excel_tables"`
	ExcelTables    int     `json:"num_excel_tables"`
}

// HeaderInfo locates a header region. Rows are 1-based and inclusive;
// EndRow is never less than StartRow.
type HeaderInfo struct {
	StartRow   int        `json:"start_row"`
	EndRow     int        `json:"end_row"`
	HeaderType HeaderType `json:"header_type"`
}

// SheetAnalysis is the model's verdict for one worksheet. HeaderInfo is nil
// when no header region was identified.
type SheetAnalysis struct {
	SheetName  string      `json:"sheet_name"`
	SheetType  SheetType   `json:"sheet_type"`
	HeaderInfo *HeaderInfo `json:"header_info,omitempty"`
	Reasoning  string      `json:"reasoning"`
}

// AnalysisOutput is the validated classification result for a whole workbook,
// one entry per sheet in the order the model returned them.
type AnalysisOutput struct {
	Sheets []SheetAnalysis `json:"sheets"`
}

// WorkbookStructure carries the deterministic half of an analysis: per-sheet
// profiles and serialized text, keyed by sheet name, with SheetOrder
// preserving workbook order.
type WorkbookStructure struct {
	FileName   string                  `json:"file_name,omitempty"`
	SheetOrder []string                `json:"sheet_order"`
	Profiles   map[string]SheetProfile `json:"profiles"`
	Texts      map[string]string       `json:"texts"`
}

// AnalysisReport is the full result of one analysis run: the structural
// snapshot plus the model's classification and how it was obtained.
type AnalysisReport struct {
	WorkbookStructure
	Model      string          `json:"model"`
	UsedImages int             `json:"used_images"`
	Analysis   *AnalysisOutput `json:"analysis"`
}
