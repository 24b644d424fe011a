package grid_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetlens/internal/grid"
)

func TestSheetText_ValuesAndPlaceholders(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		boldID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		require.NoError(t, err)

		headers := []string{"ID", "商品名", "価格", "在庫数"}
		for i, h := range headers {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, h))
		}
		require.NoError(t, f.SetCellStyle("Sheet1", "A1", "D1", boldID))

		require.NoError(t, f.SetCellValue("Sheet1", "A2", 1))
		require.NoError(t, f.SetCellValue("Sheet1", "B2", "りんご"))
		require.NoError(t, f.SetCellValue("Sheet1", "C2", 100))
		require.NoError(t, f.SetCellValue("Sheet1", "D2", 50))

		require.NoError(t, f.SetCellValue("Sheet1", "A3", 2))
		require.NoError(t, f.SetCellValue("Sheet1", "B3", "みかん"))
		require.NoError(t, f.SetCellValue("Sheet1", "C3", 150))
	})

	sz := grid.NewSerializer(20)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))

	expected := strings.Join([]string{
		"row1: | **ID** | **商品名** | **価格** | **在庫数** |",
		"row2: | 1 | りんご | 100 | 50 |",
		"row3: | 2 | みかん | 150 | [EMPTY] |",
	}, "\n")
	assert.Equal(t, expected, text)
}

func TestSheetText_MergedCells(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "月次報告"))
		require.NoError(t, f.MergeCell("Sheet1", "A1", "B2"))
	})

	sz := grid.NewSerializer(20)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))

	expected := strings.Join([]string{
		"row1: | 月次報告 | [MERGED] |",
		"row2: | [MERGED] | [MERGED] |",
	}, "\n")
	assert.Equal(t, expected, text)
}

func TestSheetText_DecorationNesting(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "重要"))
		require.NoError(t, f.SetCellValue("Sheet1", "D1", "x"))

		bothID, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"FFCC00"}, Pattern: 1},
		})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", bothID))

		fillID, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"FFCC00"}, Pattern: 1},
		})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", "B1", "B1", fillID))

		// C1 carries bold and fill but no value.
		require.NoError(t, f.SetCellStyle("Sheet1", "C1", "C1", bothID))
	})

	sz := grid.NewSerializer(20)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))

	// Bold nests inside the background marker, and a styled empty cell keeps
	// its placeholder.
	assert.Equal(t, "row1: | [BG]**重要** | [BG][EMPTY] | [BG]**[EMPTY]** | x |", text)
}

func TestSheetText_TruncationNotice(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		for r := 1; r <= 25; r++ {
			cell := fmt.Sprintf("A%d", r)
			require.NoError(t, f.SetCellValue("Sheet1", cell, fmt.Sprintf("r%d", r)))
		}
	})

	sz := grid.NewSerializer(20)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))
	lines := strings.Split(text, "\n")

	require.Len(t, lines, 21)
	assert.Equal(t, "row1: | r1 |", lines[0])
	assert.Equal(t, "row20: | r20 |", lines[19])
	assert.Equal(t, "... (実際には25行ありますが、最初の20行のみ表示)", lines[20])
}

func TestSheetText_NoNoticeAtExactCap(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		for r := 1; r <= 20; r++ {
			cell := fmt.Sprintf("A%d", r)
			require.NoError(t, f.SetCellValue("Sheet1", cell, "v"))
		}
	})

	sz := grid.NewSerializer(20)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))
	lines := strings.Split(text, "\n")

	assert.Len(t, lines, 20)
	assert.NotContains(t, text, "のみ表示")
}

func TestSheetText_CustomRowCap(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		for r := 1; r <= 5; r++ {
			cell := fmt.Sprintf("A%d", r)
			require.NoError(t, f.SetCellValue("Sheet1", cell, "v"))
		}
	})

	sz := grid.NewSerializer(2)
	text := sz.SheetText(sheetByName(t, wb, "Sheet1"))
	lines := strings.Split(text, "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "... (実際には5行ありますが、最初の2行のみ表示)", lines[2])
}

func TestNewSerializer_DefaultCap(t *testing.T) {
	assert.Equal(t, grid.DefaultMaxRows, grid.NewSerializer(0).MaxRows())
	assert.Equal(t, grid.DefaultMaxRows, grid.NewSerializer(-3).MaxRows())
	assert.Equal(t, 50, grid.NewSerializer(50).MaxRows())
}

func TestWorkbookText_AllSheets(t *testing.T) {
	wb := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "one"))
		_, err := f.NewSheet("Second")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Second", "A1", "two"))
	})

	texts := grid.NewSerializer(20).WorkbookText(wb)

	require.Len(t, texts, 2)
	assert.Equal(t, "row1: | one |", texts["Sheet1"])
	assert.Equal(t, "row1: | two |", texts["Second"])
}
