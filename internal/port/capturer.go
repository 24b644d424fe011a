package port

import "context"

// SheetCapturer renders workbook bytes into page snapshots for multimodal
// analysis. Implementations return the pages in order as PNG bytes.
type SheetCapturer interface {
	Capture(ctx context.Context, workbook []byte) ([][]byte, error)
}
