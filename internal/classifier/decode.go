package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"sheetlens/internal/domain"
)

// replyEnvelope mirrors the JSON schema the prompt asks for. Pointer fields
// distinguish absent keys from zero values during validation.
type replyEnvelope struct {
	Sheets *[]replySheet `json:"sheets"`
}

type replySheet struct {
	SheetName  *string      `json:"sheet_name"`
	SheetType  *string      `json:"sheet_type"`
	HeaderInfo *replyHeader `json:"header_info"`
	Reasoning  *string      `json:"reasoning"`
}

type replyHeader struct {
	StartRow   *int    `json:"start_row"`
	EndRow     *int    `json:"end_row"`
	HeaderType *string `json:"header_type"`
}

// StripCodeFence removes a leading ```json (or bare ```) fence and a
// trailing ``` fence from a model reply, if present.
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// DecodeReply turns a raw model reply into a validated AnalysisOutput.
// Fence stripping, JSON parsing and schema validation are separate stages:
// malformed JSON yields a *ParseError, a schema violation a *ValidationError.
func DecodeReply(raw string) (*domain.AnalysisOutput, error) {
	cleaned := StripCodeFence(raw)

	var env replyEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, &ParseError{Err: err, Raw: cleaned}
	}

	return validateReply(&env)
}

func validateReply(env *replyEnvelope) (*domain.AnalysisOutput, error) {
	if env.Sheets == nil {
		return nil, &ValidationError{Field: "sheets", Reason: "required"}
	}

	out := &domain.AnalysisOutput{Sheets: make([]domain.SheetAnalysis, 0, len(*env.Sheets))}
	for i, sheet := range *env.Sheets {
		path := fmt.Sprintf("sheets[%d]", i)

		if sheet.SheetName == nil {
			return nil, &ValidationError{Field: path + ".sheet_name", Reason: "required"}
		}
		if sheet.SheetType == nil {
			return nil, &ValidationError{Field: path + ".sheet_type", Reason: "required"}
		}
		sheetType := domain.SheetType(*sheet.SheetType)
		if !domain.KnownSheetTypes[sheetType] {
			return nil, &ValidationError{Field: path + ".sheet_type", Reason: fmt.Sprintf("unknown value %q", *sheet.SheetType)}
		}
		if sheet.Reasoning == nil {
			return nil, &ValidationError{Field: path + ".reasoning", Reason: "required"}
		}

		header, err := validateHeader(sheet.HeaderInfo, path+".header_info")
		if err != nil {
			return nil, err
		}

		out.Sheets = append(out.Sheets, domain.SheetAnalysis{
			SheetName:  *sheet.SheetName,
			SheetType:  sheetType,
			HeaderInfo: header,
			Reasoning:  *sheet.Reasoning,
		})
	}
	return out, nil
}

func validateHeader(h *replyHeader, path string) (*domain.HeaderInfo, error) {
	if h == nil {
		return nil, nil
	}
	// Models occasionally emit an empty object instead of null; treat it as
	// no header.
	if h.StartRow == nil && h.EndRow == nil && h.HeaderType == nil {
		return nil, nil
	}

	if h.StartRow == nil {
		return nil, &ValidationError{Field: path + ".start_row", Reason: "required"}
	}
	if h.EndRow == nil {
		return nil, &ValidationError{Field: path + ".end_row", Reason: "required"}
	}
	if h.HeaderType == nil {
		return nil, &ValidationError{Field: path + ".header_type", Reason: "required"}
	}
	headerType := domain.HeaderType(*h.HeaderType)
	if !domain.KnownHeaderTypes[headerType] {
		return nil, &ValidationError{Field: path + ".header_type", Reason: fmt.Sprintf("unknown value %q", *h.HeaderType)}
	}
	if *h.StartRow < 1 {
		return nil, &ValidationError{Field: path + ".start_row", Reason: "must be at least 1"}
	}
	if *h.EndRow < *h.StartRow {
		return nil, &ValidationError{Field: path + ".end_row", Reason: "must not be less than start_row"}
	}

	return &domain.HeaderInfo{
		StartRow:   *h.StartRow,
		EndRow:     *h.EndRow,
		HeaderType: headerType,
	}, nil
}
