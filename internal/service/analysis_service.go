package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"sheetlens/internal/classifier"
	"sheetlens/internal/config"
	"sheetlens/internal/domain"
	"sheetlens/internal/grid"
	"sheetlens/internal/port"
)

// verifySheetText is the canned sheet used to exercise a provider key end to
// end without uploading a workbook.
const verifySheetText = `
row1: | **ID** | **名前** | **値** |
row2: | 1 | りんご | 100 |
row3: | 2 | みかん | 150 |
`

// AnalyzeInput is the DTO for workbook analysis requests.
type AnalyzeInput struct {
	FileName    string
	Workbook    []byte
	WithCapture bool
	APIKey      string // optional per-request key overriding the configured providers
}

// AnalysisService defines the workbook classification contract.
type AnalysisService interface {
	Analyze(ctx context.Context, input AnalyzeInput) (*domain.AnalysisReport, error)
	Inspect(ctx context.Context, fileName string, workbook []byte) (*domain.WorkbookStructure, error)
	VerifyKey(ctx context.Context, provider, apiKey string) error
}

type analysisService struct {
	client    port.ModelClient
	capturer  port.SheetCapturer // nil disables capture
	clsCfg    *config.ClassifierConfig
	uploadCfg *config.UploadConfig
}

// NewAnalysisService creates a new AnalysisService implementation.
func NewAnalysisService(
	client port.ModelClient,
	capturer port.SheetCapturer,
	clsCfg *config.ClassifierConfig,
	uploadCfg *config.UploadConfig,
) AnalysisService {
	return &analysisService{
		client:    client,
		capturer:  capturer,
		clsCfg:    clsCfg,
		uploadCfg: uploadCfg,
	}
}

func (s *analysisService) Analyze(ctx context.Context, input AnalyzeInput) (*domain.AnalysisReport, error) {
	if err := s.validateUpload(input.FileName, input.Workbook); err != nil {
		return nil, err
	}

	wb, err := grid.Load(input.Workbook)
	if err != nil {
		log.Printf("analysisService.Analyze: workbook load failed for %s: %v", input.FileName, err)
		return nil, err
	}
	defer func() { _ = wb.Close() }()

	structure := s.structure(input.FileName, wb)

	var images [][]byte
	if input.WithCapture {
		if s.capturer == nil {
			log.Printf("analysisService.Analyze: capture requested but not enabled, using text only")
		} else if images, err = s.capturer.Capture(ctx, input.Workbook); err != nil {
			// Capture is best effort; fall back to text-only analysis.
			log.Printf("analysisService.Analyze: capture failed for %s, using text only: %v", input.FileName, err)
			images = nil
		} else if len(images) > classifier.MaxImages {
			// Capture page limits are configurable, the request cap is not.
			images = images[:classifier.MaxImages]
		}
	}

	client := s.client
	if input.APIKey != "" {
		client, err = classifier.BuildChainWithKey(s.clsCfg, input.APIKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
		}
	} else if s.clsCfg.PrimaryConfig().APIKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	prompt := classifier.BuildAnalysisPrompt(structure.Texts, structure.SheetOrder)
	out, err := client.Invoke(ctx, port.InvokeInput{Prompt: prompt, Images: images})
	if err != nil {
		log.Printf("analysisService.Analyze: model call failed for %s: %v", input.FileName, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}

	analysis, err := classifier.DecodeReply(out.RawText)
	if err != nil {
		log.Printf("analysisService.Analyze: reply decode failed for %s: %v", input.FileName, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrModelReplyInvalid, err)
	}

	log.Printf("analysisService.Analyze: %s classified (%d sheets, %d images, model %s)",
		input.FileName, len(analysis.Sheets), len(images), out.ModelUsed)

	return &domain.AnalysisReport{
		WorkbookStructure: *structure,
		Model:             out.ModelUsed,
		UsedImages:        len(images),
		Analysis:          analysis,
	}, nil
}

func (s *analysisService) Inspect(ctx context.Context, fileName string, workbook []byte) (*domain.WorkbookStructure, error) {
	if err := s.validateUpload(fileName, workbook); err != nil {
		return nil, err
	}

	wb, err := grid.Load(workbook)
	if err != nil {
		log.Printf("analysisService.Inspect: workbook load failed for %s: %v", fileName, err)
		return nil, err
	}
	defer func() { _ = wb.Close() }()

	return s.structure(fileName, wb), nil
}

func (s *analysisService) VerifyKey(ctx context.Context, provider, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return domain.ErrMissingAPIKey
	}

	pc := *s.clsCfg.PrimaryConfig()
	if provider != "" && provider != pc.Provider {
		pc.Provider = provider
		pc.DefaultModel = "" // let the provider pick its own default
	}
	pc.APIKey = apiKey

	client, err := classifier.NewClient(&pc)
	if err != nil {
		return err
	}

	prompt := classifier.BuildAnalysisPrompt(
		map[string]string{"TestSheet": verifySheetText},
		[]string{"TestSheet"},
	)
	out, err := client.Invoke(ctx, port.InvokeInput{Prompt: prompt})
	if err != nil {
		log.Printf("analysisService.VerifyKey: %s call failed: %v", pc.Provider, err)
		return err
	}

	analysis, err := classifier.DecodeReply(out.RawText)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrModelReplyInvalid, err)
	}
	if len(analysis.Sheets) == 0 {
		return fmt.Errorf("%w: model returned no sheet analyses", domain.ErrAnalysisUnavailable)
	}
	return nil
}

// structure computes the deterministic half of an analysis: per-sheet
// profiles and text representations.
func (s *analysisService) structure(fileName string, wb *grid.Workbook) *domain.WorkbookStructure {
	sz := grid.NewSerializer(s.clsCfg.MaxTextRows)
	return &domain.WorkbookStructure{
		FileName:   fileName,
		SheetOrder: wb.SheetNames(),
		Profiles:   grid.ProfileAll(wb),
		Texts:      sz.WorkbookText(wb),
	}
}

func (s *analysisService) validateUpload(fileName string, workbook []byte) error {
	if len(workbook) == 0 {
		return domain.ErrMissingFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if _, ok := domain.WorkbookExtensions[ext]; !ok {
		return domain.ErrUnsupportedFileType
	}

	maxBytes := s.uploadCfg.MaxFileSizeMB * 1024 * 1024
	if maxBytes > 0 && int64(len(workbook)) > maxBytes {
		return domain.ErrFileTooLarge
	}

	// Magic-byte check: xlsx and xlsm are zip containers.
	head := workbook
	if len(head) > 512 {
		head = head[:512]
	}
	if http.DetectContentType(head) != "application/zip" {
		return domain.ErrUnsupportedFileType
	}
	return nil
}
