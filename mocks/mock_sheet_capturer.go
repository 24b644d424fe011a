package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSheetCapturer is a mock implementation of port.SheetCapturer.
type MockSheetCapturer struct {
	mock.Mock
}

func (m *MockSheetCapturer) Capture(ctx context.Context, workbook []byte) ([][]byte, error) {
	args := m.Called(ctx, workbook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}
