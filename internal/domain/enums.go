package domain

// SheetType classifies the overall layout of a worksheet.
type SheetType string

const (
	SheetTypeTable   SheetType = "table"
	SheetTypeForm    SheetType = "form"
	SheetTypeMixed   SheetType = "mixed"
	SheetTypeUnknown SheetType = "unknown"
)

// KnownSheetTypes is the complete classification vocabulary.
var KnownSheetTypes = map[SheetType]bool{
	SheetTypeTable:   true,
	SheetTypeForm:    true,
	SheetTypeMixed:   true,
	SheetTypeUnknown: true,
}

// HeaderType describes the shape of a detected header region.
type HeaderType string

const (
	HeaderTypeSingle HeaderType = "single"
	HeaderTypeMulti  HeaderType = "multi-level"
)

// KnownHeaderTypes lists the accepted header shapes.
var KnownHeaderTypes = map[HeaderType]bool{
	HeaderTypeSingle: true,
	HeaderTypeMulti:  true,
}

// WorkbookExtensions maps accepted upload extensions (without dot) to their
// MIME content type.
var WorkbookExtensions = map[string]string{
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
}
