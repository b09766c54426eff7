package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/domain/transfer"
	dto "devtransfer/internal/interface/api/rest/dto/transfer"
	"devtransfer/internal/interface/api/rest/middleware"
	"devtransfer/internal/interface/api/rest/validator"
)

const (
	headerFilename = "X-Filename"
	formFileField  = "file"
)

var errMissingFile = errors.New(`multipart field "file" is required`)

type TransferOptions struct {
	PublicBaseURL  string
	DefaultTTL     time.Duration
	MaxUploadBytes int64
}

type TransferController struct {
	ledger ports.LedgerService
	logger *zap.Logger
	opts   TransferOptions
}

func NewTransferController(
	r *gin.Engine,
	ledger ports.LedgerService,
	logger *zap.Logger,
	opts TransferOptions,
	auth *middleware.Authenticator,
	downloadLimit gin.HandlerFunc,
) *TransferController {
	tc := &TransferController{
		ledger: ledger,
		logger: logger,
		opts:   opts,
	}

	r.PUT(RouteUpload, auth.RequireUploader(), tc.UploadHandler)
	r.POST(RouteTransfers, auth.RequireUploader(), tc.UploadHandler)
	r.GET(RouteTransfers, auth.RequireUploader(), tc.ListMineHandler)
	r.GET(RouteDownload, downloadLimit, tc.DownloadHandler)
	r.GET(RouteTransfer, downloadLimit, tc.DownloadHandler)

	return tc
}

// UploadHandler accepts a multipart "file" field or a raw body named by
// X-Filename. The devtrans client expects 200 on /upload, the API answers 201.
func (tc *TransferController) UploadHandler(c *gin.Context) {
	ttl, err := validator.ParseTTL(c.Query("ttl"), tc.opts.DefaultTTL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	oneShot, err := validator.ParseOneShot(c.Query("one_shot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Request.ContentLength > tc.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, tc.opts.MaxUploadBytes)

	body, name, size, err := tc.payload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filename, err := validator.CheckFilename(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy := transfer.PolicyPersistent
	if oneShot {
		policy = transfer.PolicyOneShot
	}

	rec, err := tc.ledger.Create(c.Request.Context(), transfer.CreateRequest{
		Filename: filename,
		Size:     size,
		Owner:    middleware.Owner(c),
		TTL:      ttl,
		Policy:   policy,
	}, body)
	if err != nil {
		tc.createError(c, err)
		return
	}

	status := http.StatusCreated
	if c.FullPath() == RouteUpload {
		status = http.StatusOK
	}

	c.JSON(status, dto.ToResponseTransfer(*rec, tc.opts.PublicBaseURL))
}

// payload returns the upload stream, its name and its declared size (-1 if unknown).
func (tc *TransferController) payload(c *gin.Context) (io.Reader, string, int64, error) {
	name := headerName(c.GetHeader(headerFilename))

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.Body, name, c.Request.ContentLength, nil
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, "", 0, errMissingFile
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", 0, err
			}
			return nil, "", 0, errMissingFile
		}
		if part.FormName() != formFileField {
			continue
		}
		if name == "" {
			name = part.FileName()
		}
		// the part length is unknown until it has been read
		return part, name, -1, nil
	}
}

func headerName(v string) string {
	if s, err := url.PathUnescape(v); err == nil {
		return s
	}
	return v
}

func (tc *TransferController) createError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, transfer.ErrInvalidTTL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl"})
	case errors.Is(err, transfer.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, transfer.ErrSizeMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "received size does not match Content-Length"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		tc.logger.Error("Create() error", zap.Error(err))
	}
}

func (tc *TransferController) DownloadHandler(c *gin.Context) {
	code := c.Param("code")
	if !validator.ValidCode(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	ctx := c.Request.Context()
	res, err := tc.ledger.ResolveForDownload(ctx, code)
	if err != nil {
		tc.resolveError(c, err)
		return
	}
	// consumption is final once resolved, the blob goes whatever happens to the stream
	defer tc.ledger.Release(context.WithoutCancel(ctx), res)

	rc, err := tc.ledger.Open(ctx, res)
	if err != nil {
		tc.resolveError(c, err)
		return
	}
	defer rc.Close()

	c.Header(headerFilename, url.PathEscape(res.Filename))
	c.Header("Content-Disposition", contentDisposition(res.Filename))
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Cache-Control", "no-store")
	if res.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(res.Size, 10))
	}
	c.Status(http.StatusOK)

	if _, err = io.Copy(c.Writer, rc); err != nil {
		tc.logger.Warn("download interrupted", zap.String("code", code), zap.Error(err))
	}
}

func (tc *TransferController) resolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, transfer.ErrExpired):
		c.JSON(http.StatusNotFound, gin.H{"error": "link expired"})
	case errors.Is(err, transfer.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		tc.logger.Error("download error", zap.Error(err))
	}
}

// contentDisposition carries an ASCII fallback and the RFC 5987 UTF-8 name.
func contentDisposition(name string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return `attachment; filename="` + validator.ASCIIFilename(name) + `"; filename*=UTF-8''` + encoded
}

func (tc *TransferController) ListMineHandler(c *gin.Context) {
	recs, err := tc.ledger.ListByOwner(c.Request.Context(), middleware.Owner(c))
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to list transfers"},
		)
		tc.logger.Error("ListByOwner() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{
		Data: dto.ToResponseTransfers(recs, tc.opts.PublicBaseURL),
	})
}
