package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sheetlens/internal/domain"
	"sheetlens/internal/service"
)

// MockAnalysisService is a mock implementation of service.AnalysisService.
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, input service.AnalyzeInput) (*domain.AnalysisReport, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisReport), args.Error(1)
}

func (m *MockAnalysisService) Inspect(ctx context.Context, fileName string, workbook []byte) (*domain.WorkbookStructure, error) {
	args := m.Called(ctx, fileName, workbook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkbookStructure), args.Error(1)
}

func (m *MockAnalysisService) VerifyKey(ctx context.Context, provider, apiKey string) error {
	args := m.Called(ctx, provider, apiKey)
	return args.Error(0)
}
