package rest

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CLIController serves the devtrans client's self-update endpoints.
type CLIController struct {
	version    string
	binaryPath string
	logger     *zap.Logger
}

func NewCLIController(r *gin.Engine, version, binaryPath string, logger *zap.Logger) *CLIController {
	cc := &CLIController{
		version:    version,
		binaryPath: binaryPath,
		logger:     logger,
	}

	r.GET(RouteCLIVersion, cc.VersionHandler)
	r.GET(RouteCLIBinary, cc.BinaryHandler)

	return cc
}

// VersionHandler answers in plain text, the client compares it verbatim.
func (cc *CLIController) VersionHandler(c *gin.Context) {
	c.String(http.StatusOK, cc.version)
}

func (cc *CLIController) BinaryHandler(c *gin.Context) {
	if cc.binaryPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "client binary not available"})
		return
	}
	if fi, err := os.Stat(cc.binaryPath); err != nil || fi.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "client binary not available"})
		if err != nil {
			cc.logger.Warn("client binary missing", zap.String("path", cc.binaryPath), zap.Error(err))
		}
		return
	}

	c.FileAttachment(cc.binaryPath, "devtrans")
}
