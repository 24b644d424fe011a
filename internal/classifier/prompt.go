// Package classifier turns serialized worksheets into a classification
// prompt, sends it to an LLM provider and decodes the reply into the typed
// analysis output. Provider clients live in subpackages and register
// themselves with the factory in this package.
package classifier

import (
	"fmt"
	"strings"
)

// TextSystemPrompt is the system role content for text-only analysis.
const TextSystemPrompt = "あなたはExcelファイルの構造分析を専門とするAIアシスタントです。指定されたJSONスキーマに厳密に従って応答してください。"

// VisionSystemPrompt is the system role content when page snapshots are
// attached alongside the text representation.
const VisionSystemPrompt = "あなたはExcelファイルの構造分析を専門とするAIアシスタントです。テキスト情報と画像の両方を参考にして、指定されたJSONスキーマに厳密に従って応答してください。画像からは視覚的なレイアウト、フォーマット、ヘッダーの強調表示などの情報を読み取ってください。"

// MaxImages caps how many page snapshots a single request may carry.
// Provider clients drop any images past this count.
const MaxImages = 3

const analysisPromptHead = `あなたはExcelシートの構造分析に特化したAIアシスタントです。
あなたのタスクは、Excelシートの内容と構造に基づいて、シートを「table（テーブル）」「form（フォーム）」「mixed（混合）」「unknown（不明）」のいずれかに分類することです。
シートが「table」または「mixed」に分類された場合、ヘッダー行も特定してください。

以下のJSONスキーマに準拠したJSONオブジェクトとしてのみ出力してください。

` + "```json" + `
{
  "type": "object",
  "properties": {
    "sheets": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "sheet_name": { "type": "string", "description": "分析対象のExcelシート名。" },
          "sheet_type": { "type": "string", "enum": ["table", "form", "mixed", "unknown"], "description": "シートの主要な目的の分類。" },
          "header_info": {
            "type": "object",
            "properties": {
              "start_row": { "type": "integer", "description": "ヘッダーが始まる1ベースの行インデックス。" },
              "end_row": { "type": "integer", "description": "ヘッダーが終わる1ベースの行インデックス。" },
              "header_type": { "type": "string", "enum": ["single", "multi-level"], "description": "ヘッダーのタイプ: 'single' は単一行、'multi-level' は複数行。" }
            },
            "description": "検出されたテーブルヘッダーの詳細。テーブルでない場合やヘッダーが見つからない場合はnull。"
          },
          "reasoning": { "type": "string", "description": "分類とヘッダー検出に関する簡潔な説明。" }
        },
        "required": ["sheet_name", "sheet_type", "reasoning"]
      },
      "description": "Excelファイル内の各シートの分析結果。"
    }
  },
  "required": ["sheets"]
}
` + "```" + `

分類の基準:
- **table**: データが行列形式で整理されており、明確なヘッダーがある
- **form**: 入力フォームのような構造で、ラベルと値のペアが散在している
- **mixed**: テーブル要素とフォーム要素が混在している
- **unknown**: 上記のいずれにも明確に分類できない

ヘッダー検出の基準:
- 太字(**テキスト**)で表示されているセル
- 結合セル([MERGED])を使用した階層構造
- データ行の上部に位置する説明的なテキスト

以下に、Excelシートの内容をテキスト形式で表現したものです：

`

const analysisPromptTail = `

JSONオブジェクトのみを出力してください。JSON以外のテキストや説明は含めないでください。`

// SheetDelimiter formats the line that precedes one sheet's text inside the
// combined prompt.
func SheetDelimiter(sheetName string) string {
	return fmt.Sprintf("=== シート: %s ===", sheetName)
}

// BuildAnalysisPrompt assembles the classification prompt from the per-sheet
// text representations, concatenated in the given order with a delimiter line
// before each sheet. The prompt is deterministic for a given input.
func BuildAnalysisPrompt(texts map[string]string, order []string) string {
	blocks := make([]string, 0, len(order))
	for _, name := range order {
		blocks = append(blocks, SheetDelimiter(name)+"\n"+texts[name])
	}
	return analysisPromptHead + strings.Join(blocks, "\n\n") + analysisPromptTail
}
