package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sheetlens/internal/service"
)

// AnalysisHandler handles workbook analysis endpoints.
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Analyze handles POST /api/v1/workbooks/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	fileName, data, ok := readWorkbookFile(c)
	if !ok {
		return
	}

	withCapture := false
	if v := c.PostForm("capture"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "capture must be a boolean")
			return
		}
		withCapture = parsed
	}

	input := service.AnalyzeInput{
		FileName:    fileName,
		Workbook:    data,
		WithCapture: withCapture,
		APIKey:      c.PostForm("api_key"),
	}

	report, err := h.analysisService.Analyze(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, report)
}

// Inspect handles POST /api/v1/workbooks/inspect
func (h *AnalysisHandler) Inspect(c *gin.Context) {
	fileName, data, ok := readWorkbookFile(c)
	if !ok {
		return
	}

	structure, err := h.analysisService.Inspect(c.Request.Context(), fileName, data)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, structure)
}

// VerifyKeyInput is the request body for POST /api/v1/key/verify.
type VerifyKeyInput struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key" binding:"required"`
}

// VerifyKey handles POST /api/v1/key/verify
func (h *AnalysisHandler) VerifyKey(c *gin.Context) {
	var input VerifyKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.analysisService.VerifyKey(c.Request.Context(), input.Provider, input.APIKey); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "api key verified"})
}

// readWorkbookFile extracts the uploaded workbook from the multipart form.
// Returns false if an error response has already been written.
func readWorkbookFile(c *gin.Context) (fileName string, data []byte, ok bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	data, err = io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UPLOAD_READ_FAILED", "could not read uploaded file")
		return "", nil, false
	}
	return header.Filename, data, true
}
