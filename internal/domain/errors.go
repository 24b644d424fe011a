package domain

import "errors"

var (
	ErrMissingFile         = errors.New("no file provided")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrWorkbookLoad        = errors.New("workbook could not be opened")
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrModelReplyInvalid   = errors.New("model reply could not be interpreted")
	ErrMissingAPIKey       = errors.New("no api key configured")
)
