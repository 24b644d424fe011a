package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetlens/internal/classifier"
	"sheetlens/internal/config"
	"sheetlens/internal/domain"
	"sheetlens/internal/port"
	"sheetlens/internal/service"
	"sheetlens/mocks"
)

const validReply = `{"sheets":[{"sheet_name":"Sheet1","sheet_type":"table","header_info":{"start_row":1,"end_row":1,"header_type":"single"},"reasoning":"先頭行が見出し"}]}`

// workbookBytes builds a small real xlsx in memory.
func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "ID"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "名前"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 1))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "りんご"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func newTestService(client port.ModelClient, capturer port.SheetCapturer) service.AnalysisService {
	clsCfg := &config.ClassifierConfig{
		Provider:    "openai",
		APIKey:      "configured-key",
		MaxTextRows: 20,
	}
	uploadCfg := &config.UploadConfig{MaxFileSizeMB: 20}
	return service.NewAnalysisService(client, capturer, clsCfg, uploadCfg)
}

func TestAnalyze_Success(t *testing.T) {
	client := new(mocks.MockModelClient)
	var sent port.InvokeInput
	client.On("Invoke", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(port.InvokeInput) }).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, nil)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
	})

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "sales.xlsx", report.FileName)
	assert.Equal(t, []string{"Sheet1"}, report.SheetOrder)
	assert.Equal(t, "gpt-4.1-mini", report.Model)
	assert.Equal(t, 0, report.UsedImages)
	require.Len(t, report.Analysis.Sheets, 1)
	assert.Equal(t, domain.SheetTypeTable, report.Analysis.Sheets[0].SheetType)

	// The prompt must carry the serialized cell grid.
	assert.Contains(t, sent.Prompt, "=== シート: Sheet1 ===")
	assert.Contains(t, sent.Prompt, "row2: | 1 | りんご |")
	assert.Nil(t, sent.Images)

	profile := report.Profiles["Sheet1"]
	assert.Equal(t, 2, profile.MaxRow)
	assert.Equal(t, 2, profile.MaxColumn)
	assert.Equal(t, 4, profile.NonEmptyCells)
}

func TestAnalyze_WithCapture(t *testing.T) {
	pages := [][]byte{[]byte("png-page-1"), []byte("png-page-2")}
	capturer := new(mocks.MockSheetCapturer)
	capturer.On("Capture", mock.Anything, mock.Anything).Return(pages, nil)

	client := new(mocks.MockModelClient)
	var sent port.InvokeInput
	client.On("Invoke", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(port.InvokeInput) }).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, capturer)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName:    "sales.xlsx",
		Workbook:    workbookBytes(t),
		WithCapture: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, report.UsedImages)
	assert.Equal(t, pages, sent.Images)
}

func TestAnalyze_CaptureImageCap(t *testing.T) {
	pages := [][]byte{
		[]byte("png-page-1"),
		[]byte("png-page-2"),
		[]byte("png-page-3"),
		[]byte("png-page-4"),
		[]byte("png-page-5"),
	}
	capturer := new(mocks.MockSheetCapturer)
	capturer.On("Capture", mock.Anything, mock.Anything).Return(pages, nil)

	client := new(mocks.MockModelClient)
	var sent port.InvokeInput
	client.On("Invoke", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(port.InvokeInput) }).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, capturer)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName:    "sales.xlsx",
		Workbook:    workbookBytes(t),
		WithCapture: true,
	})

	require.NoError(t, err)
	// Only the first three pages reach the model when capture produces more.
	assert.Equal(t, 3, report.UsedImages)
	assert.Equal(t, pages[:3], sent.Images)
}

func TestAnalyze_CaptureFailureFallsBackToText(t *testing.T) {
	capturer := new(mocks.MockSheetCapturer)
	capturer.On("Capture", mock.Anything, mock.Anything).Return(nil, errors.New("soffice: exit status 1"))

	client := new(mocks.MockModelClient)
	var sent port.InvokeInput
	client.On("Invoke", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(port.InvokeInput) }).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, capturer)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName:    "sales.xlsx",
		Workbook:    workbookBytes(t),
		WithCapture: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, report.UsedImages)
	assert.Nil(t, sent.Images)
}

func TestAnalyze_CaptureRequestedButDisabled(t *testing.T) {
	client := new(mocks.MockModelClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, nil)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName:    "sales.xlsx",
		Workbook:    workbookBytes(t),
		WithCapture: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, report.UsedImages)
}

func TestAnalyze_ModelCallFails(t *testing.T) {
	client := new(mocks.MockModelClient)
	client.On("Invoke", mock.Anything, mock.Anything).Return(nil,
		classifier.NewRateLimitError("openai", fmt.Errorf("429"), 30))

	svc := newTestService(client, nil)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
	})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	// Provider detail is flattened into the message.
	var rlErr *classifier.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestAnalyze_InvalidReply(t *testing.T) {
	client := new(mocks.MockModelClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.InvokeOutput{RawText: "すみません、JSONを生成できません。", ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, nil)

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
	})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrModelReplyInvalid)
	var parseErr *classifier.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestAnalyze_ReplyFailsValidation(t *testing.T) {
	client := new(mocks.MockModelClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.InvokeOutput{RawText: `{"sheets":[{"sheet_name":"Sheet1","reasoning":"x"}]}`, ModelUsed: "gpt-4.1-mini"}, nil)

	svc := newTestService(client, nil)

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
	})

	assert.ErrorIs(t, err, domain.ErrModelReplyInvalid)
	var valErr *classifier.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestAnalyze_EmptyUpload(t *testing.T) {
	client := new(mocks.MockModelClient)
	svc := newTestService(client, nil)

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{FileName: "sales.xlsx"})

	assert.ErrorIs(t, err, domain.ErrMissingFile)
	client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestAnalyze_UnsupportedExtension(t *testing.T) {
	client := new(mocks.MockModelClient)
	svc := newTestService(client, nil)

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.csv",
		Workbook: workbookBytes(t),
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestAnalyze_FileTooLarge(t *testing.T) {
	client := new(mocks.MockModelClient)
	clsCfg := &config.ClassifierConfig{Provider: "openai", APIKey: "k", MaxTextRows: 20}
	svc := service.NewAnalysisService(client, nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 1})

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: make([]byte, 2*1024*1024),
	})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestAnalyze_NotAZipContainer(t *testing.T) {
	client := new(mocks.MockModelClient)
	svc := newTestService(client, nil)

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: []byte("id,name\n1,apple\n"),
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestAnalyze_CorruptWorkbook(t *testing.T) {
	client := new(mocks.MockModelClient)
	svc := newTestService(client, nil)

	// Valid zip magic, broken archive.
	data := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x00}, 64)...)

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: data,
	})

	assert.ErrorIs(t, err, domain.ErrWorkbookLoad)
}

func TestAnalyze_NoKeyConfigured(t *testing.T) {
	client := new(mocks.MockModelClient)
	clsCfg := &config.ClassifierConfig{Provider: "openai", MaxTextRows: 20}
	svc := service.NewAnalysisService(client, nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	_, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
	})

	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

// recordingClient captures the provider config it was built from.
type recordingClient struct {
	cfg   config.ProviderConfig
	reply string
	err   error
}

func (r *recordingClient) Invoke(_ context.Context, _ port.InvokeInput) (*port.InvokeOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &port.InvokeOutput{RawText: r.reply, ModelUsed: "stub-model"}, nil
}

func TestAnalyze_PerRequestKeyOverridesChain(t *testing.T) {
	var built []config.ProviderConfig
	classifier.RegisterProvider("analyze-stub", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		built = append(built, *cfg)
		return &recordingClient{cfg: *cfg, reply: validReply}, nil
	})

	configured := new(mocks.MockModelClient)
	clsCfg := &config.ClassifierConfig{Provider: "analyze-stub", APIKey: "configured-key", MaxTextRows: 20}
	svc := service.NewAnalysisService(configured, nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "sales.xlsx",
		Workbook: workbookBytes(t),
		APIKey:   "user-key",
	})

	require.NoError(t, err)
	assert.Equal(t, "stub-model", report.Model)
	require.Len(t, built, 1)
	assert.Equal(t, "user-key", built[0].APIKey)
	configured.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestInspect_ReturnsStructureWithoutModelCall(t *testing.T) {
	client := new(mocks.MockModelClient)
	svc := newTestService(client, nil)

	structure, err := svc.Inspect(context.Background(), "sales.xlsx", workbookBytes(t))

	require.NoError(t, err)
	assert.Equal(t, "sales.xlsx", structure.FileName)
	assert.Equal(t, []string{"Sheet1"}, structure.SheetOrder)
	assert.Contains(t, structure.Texts["Sheet1"], "row1:")
	client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestInspect_ValidatesUpload(t *testing.T) {
	svc := newTestService(new(mocks.MockModelClient), nil)

	_, err := svc.Inspect(context.Background(), "sales.xlsx", nil)

	assert.ErrorIs(t, err, domain.ErrMissingFile)
}

func TestVerifyKey_BlankKey(t *testing.T) {
	svc := newTestService(new(mocks.MockModelClient), nil)

	assert.ErrorIs(t, svc.VerifyKey(context.Background(), "", ""), domain.ErrMissingAPIKey)
	assert.ErrorIs(t, svc.VerifyKey(context.Background(), "", "   "), domain.ErrMissingAPIKey)
}

func TestVerifyKey_Success(t *testing.T) {
	var built []config.ProviderConfig
	classifier.RegisterProvider("verify-stub", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		built = append(built, *cfg)
		return &recordingClient{cfg: *cfg, reply: validReply}, nil
	})

	clsCfg := &config.ClassifierConfig{Provider: "verify-stub", DefaultModel: "stub-model", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "", "candidate-key")

	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, "candidate-key", built[0].APIKey)
	assert.Equal(t, "verify-stub", built[0].Provider)
}

func TestVerifyKey_ProviderOverrideClearsModel(t *testing.T) {
	var built []config.ProviderConfig
	classifier.RegisterProvider("verify-other", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		built = append(built, *cfg)
		return &recordingClient{cfg: *cfg, reply: validReply}, nil
	})

	clsCfg := &config.ClassifierConfig{Provider: "openai", DefaultModel: "gpt-4.1-mini", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "verify-other", "candidate-key")

	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, "verify-other", built[0].Provider)
	// The configured model belongs to the configured provider, so it is dropped.
	assert.Empty(t, built[0].DefaultModel)
}

func TestVerifyKey_AuthErrorPassesThrough(t *testing.T) {
	classifier.RegisterProvider("verify-badkey", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return &recordingClient{err: &classifier.AuthError{Provider: "verify-badkey", Err: errors.New("401")}}, nil
	})

	clsCfg := &config.ClassifierConfig{Provider: "verify-badkey", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "", "wrong-key")

	var authErr *classifier.AuthError
	require.True(t, errors.As(err, &authErr))
}

func TestVerifyKey_EmptyAnalysis(t *testing.T) {
	classifier.RegisterProvider("verify-empty", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return &recordingClient{reply: `{"sheets":[]}`}, nil
	})

	clsCfg := &config.ClassifierConfig{Provider: "verify-empty", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "", "some-key")

	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
}

func TestVerifyKey_InvalidReply(t *testing.T) {
	classifier.RegisterProvider("verify-garbled", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return &recordingClient{reply: "not json"}, nil
	})

	clsCfg := &config.ClassifierConfig{Provider: "verify-garbled", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "", "some-key")

	assert.ErrorIs(t, err, domain.ErrModelReplyInvalid)
}

func TestVerifyKey_UnknownProvider(t *testing.T) {
	clsCfg := &config.ClassifierConfig{Provider: "openai", MaxTextRows: 20}
	svc := service.NewAnalysisService(new(mocks.MockModelClient), nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	err := svc.VerifyKey(context.Background(), "no-such-provider", "some-key")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model provider")
}

func TestAnalyze_TextsFollowRowCap(t *testing.T) {
	f := excelize.NewFile()
	for row := 1; row <= 10; row++ {
		cell, err := excelize.CoordinatesToCellName(1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	client := new(mocks.MockModelClient)
	client.On("Invoke", mock.Anything, mock.Anything).
		Return(&port.InvokeOutput{RawText: validReply, ModelUsed: "gpt-4.1-mini"}, nil)

	clsCfg := &config.ClassifierConfig{Provider: "openai", APIKey: "k", MaxTextRows: 3}
	svc := service.NewAnalysisService(client, nil, clsCfg, &config.UploadConfig{MaxFileSizeMB: 20})

	report, err := svc.Analyze(context.Background(), service.AnalyzeInput{
		FileName: "long.xlsx",
		Workbook: buf.Bytes(),
	})

	require.NoError(t, err)
	text := report.Texts["Sheet1"]
	assert.Contains(t, text, "row3:")
	assert.NotContains(t, text, "row4: |")
	assert.True(t, strings.Contains(text, "最初の3行のみ表示"))
}
