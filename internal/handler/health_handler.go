package handler

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"

	"sheetlens/internal/config"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	captureCfg *config.CaptureConfig
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(captureCfg *config.CaptureConfig) *HealthHandler {
	return &HealthHandler{captureCfg: captureCfg}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// Capture tooling is optional, so a missing binary degrades the capture
// status without failing the check.
func (h *HealthHandler) Readiness(c *gin.Context) {
	body := gin.H{"status": "ok"}

	if !h.captureCfg.Enabled {
		body["capture"] = "disabled"
		c.JSON(http.StatusOK, body)
		return
	}

	var missing []string
	for _, bin := range []string{h.captureCfg.SofficeBin, h.captureCfg.PdftoppmBin} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		body["capture"] = "degraded"
		body["missing_tools"] = missing
	} else {
		body["capture"] = "ready"
	}

	c.JSON(http.StatusOK, body)
}
