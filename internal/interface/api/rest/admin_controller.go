package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/domain/transfer"
	dto "devtransfer/internal/interface/api/rest/dto/transfer"
	"devtransfer/internal/interface/api/rest/middleware"
	"devtransfer/internal/interface/api/rest/validator"
)

// EventStream upgrades a request to a live feed of ledger events.
type EventStream interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
}

type AdminController struct {
	ledger  ports.LedgerService
	sweeper ports.Sweeper
	events  EventStream
	logger  *zap.Logger
	baseURL string
}

func NewAdminController(
	r *gin.Engine,
	ledger ports.LedgerService,
	sweeper ports.Sweeper,
	events EventStream,
	logger *zap.Logger,
	baseURL string,
	auth *middleware.Authenticator,
) *AdminController {
	ac := &AdminController{
		ledger:  ledger,
		sweeper: sweeper,
		events:  events,
		logger:  logger,
		baseURL: baseURL,
	}

	r.GET(RouteAdminTransfers, auth.RequireAdmin(), ac.ListTransfersHandler)
	r.DELETE(RouteAdminTransfer, auth.RequireAdmin(), ac.DeleteTransferHandler)
	r.POST(RouteAdminSweep, auth.RequireAdmin(), ac.SweepHandler)
	r.GET(RouteAdminEvents, auth.RequireAdmin(), ac.EventsHandler)

	return ac
}

// ListTransfersHandler lists every active transfer, or one owner's with ?owner=.
func (ac *AdminController) ListTransfersHandler(c *gin.Context) {
	var (
		recs transfer.Records
		err  error
	)
	if owner := c.Query("owner"); owner != "" {
		recs, err = ac.ledger.ListByOwner(c.Request.Context(), owner)
	} else {
		recs, err = ac.ledger.ListActive(c.Request.Context())
	}
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to list transfers"},
		)
		ac.logger.Error("list transfers error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{
		Data: dto.ToResponseTransfers(recs, ac.baseURL),
	})
}

func (ac *AdminController) DeleteTransferHandler(c *gin.Context) {
	code := c.Param("code")
	if !validator.ValidCode(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	err := ac.ledger.Delete(c.Request.Context(), code, middleware.Owner(c))
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to delete transfer"},
		)
		ac.logger.Error("Delete() error", zap.Error(err), zap.String("code", code))
		return
	}

	c.Status(http.StatusNoContent)
}

func (ac *AdminController) SweepHandler(c *gin.Context) {
	expired, orphans, err := ac.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "sweep failed"},
		)
		ac.logger.Error("RunOnce() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, dto.SweepResponse{Expired: expired, Orphans: orphans})
}

func (ac *AdminController) EventsHandler(c *gin.Context) {
	ac.events.HandleConnection(c.Writer, c.Request)
}
