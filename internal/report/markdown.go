// Package report renders analysis results for human consumption.
package report

import (
	"fmt"
	"strings"

	"sheetlens/internal/domain"
)

// Markdown formats a classification result as a Markdown document with one
// section per sheet. A nil or empty result yields a short notice instead.
func Markdown(analysis *domain.AnalysisOutput) string {
	if analysis == nil || len(analysis.Sheets) == 0 {
		return "分析結果がありません。"
	}

	var lines []string
	lines = append(lines, "## Excel分析結果\n")

	for _, sheet := range analysis.Sheets {
		lines = append(lines, fmt.Sprintf("### シート: %s", sheet.SheetName))
		lines = append(lines, fmt.Sprintf("**分類**: %s", sheet.SheetType))

		if h := sheet.HeaderInfo; h != nil {
			lines = append(lines, "**ヘッダー情報**:")
			lines = append(lines, fmt.Sprintf("- 開始行: %d", h.StartRow))
			lines = append(lines, fmt.Sprintf("- 終了行: %d", h.EndRow))
			lines = append(lines, fmt.Sprintf("- タイプ: %s", h.HeaderType))
		} else {
			lines = append(lines, "**ヘッダー情報**: なし")
		}

		lines = append(lines, fmt.Sprintf("**判定理由**: %s", sheet.Reasoning))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
