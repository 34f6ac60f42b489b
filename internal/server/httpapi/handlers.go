// Package httpapi exposes the product's HTTP surface: upload intake, status
// lookup, usage, reprocess, and the cron-authenticated worker trigger.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/dbx"
	"github.com/notecompanion/pipeline/internal/logging"
	"github.com/notecompanion/pipeline/internal/server/metering"
	"github.com/notecompanion/pipeline/internal/server/models"
	"github.com/notecompanion/pipeline/internal/server/objectstore"
	"github.com/notecompanion/pipeline/internal/server/repositories/repomanager"
	"github.com/notecompanion/pipeline/internal/server/repositories/uploads"
)

// WorkerRunner is the trigger-facing surface of the batch worker.
type WorkerRunner interface {
	RunOnce(ctx context.Context) (models.RunSummary, error)
}

// Handlers carries the API's injected collaborators. The db handle plus the
// repository manager let the text fast-path create and complete a record in
// one transaction.
type Handlers struct {
	repo   uploads.Repository
	db     *sql.DB
	rm     repomanager.RepositoryManager
	meter  *metering.Service
	store  objectstore.Gateway
	worker WorkerRunner
	logger logging.Logger
}

// NewHandlers wires the API handlers.
func NewHandlers(db *sql.DB, rm repomanager.RepositoryManager, meter *metering.Service, store objectstore.Gateway, worker WorkerRunner, logger logging.Logger) *Handlers {
	return &Handlers{
		repo:   rm.Uploads(db),
		db:     db,
		rm:     rm,
		meter:  meter,
		store:  store,
		worker: worker,
		logger: logger,
	}
}

// Trigger runs one batch pass. A 500 is returned only when the batch fetch
// itself failed; per-record failures are recorded on the records.
func (h *Handlers) Trigger(c *gin.Context) {
	summary, err := h.worker.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "batch run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch run failed"})
		return
	}

	message := "batch processed"
	if summary.Idle() {
		message = "no pending uploads"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})
}

type uploadRequest struct {
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Base64      string `json:"base64" binding:"required"`
	ProcessType string `json:"processType"`
}

// Upload stores the raw bytes and creates a pending record. Plain text and
// markdown complete synchronously: no AI call is needed, so the client gets
// a terminal record without waiting for a batch pass.
func (h *Handlers) Upload(c *gin.Context) {
	userID := currentUserID(c)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload payload"})
		return
	}

	processType := models.ProcessType(req.ProcessType)
	if processType == "" {
		processType = models.ProcessStandardOCR
	}
	if processType != models.ProcessStandardOCR && processType != models.ProcessMagicDiagram {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown process type: %s", req.ProcessType)})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Base64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is not valid base64"})
		return
	}

	key := fmt.Sprintf("uploads/%s/%d-%s", userID, time.Now().UnixMilli(), sanitizeName(req.Name))
	if err := h.store.Upload(c.Request.Context(), key, data, req.Type); err != nil {
		h.logger.Error(c.Request.Context(), "intake upload failed", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	rec := &models.UploadRecord{
		UserID:      userID,
		ObjectKey:   key,
		PublicURL:   h.store.PublicURL(key),
		FileType:    req.Type,
		ProcessType: processType,
	}

	status := models.StatusPending
	if req.Type == "text/plain" || req.Type == "text/markdown" {
		// Text needs no AI pass; create the record already completed, in
		// one transaction so a partially written record never surfaces.
		result := models.ExtractionResult{
			Status:      models.StatusCompleted,
			TextContent: string(data),
		}
		err := dbx.WithTx(c.Request.Context(), h.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := h.rm.Uploads(tx)
			if err := repo.Create(ctx, rec); err != nil {
				return err
			}
			return repo.CommitResult(ctx, rec.ID, result)
		})
		if err != nil {
			h.logger.Error(c.Request.Context(), "text fast-path failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create record"})
			return
		}
		status = models.StatusCompleted
	} else {
		if err := h.repo.Create(c.Request.Context(), rec); err != nil {
			h.logger.Error(c.Request.Context(), "record create failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create record"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"fileId": rec.ID, "status": status})
}

type statusResponse struct {
	Status            models.UploadStatus `json:"status"`
	TextContent       string              `json:"textContent,omitempty"`
	GeneratedImageURL string              `json:"generatedImageUrl,omitempty"`
	TokensUsed        int                 `json:"tokensUsed,omitempty"`
	Error             string              `json:"error,omitempty"`
}

// Status returns the record's current pipeline state. Records owned by
// other users are indistinguishable from missing ones.
func (h *Handlers) Status(c *gin.Context) {
	rec, err := h.repo.GetForUser(c.Request.Context(), c.Param("id"), currentUserID(c))
	if errors.Is(err, common.ErrorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	if err != nil {
		h.logger.Error(c.Request.Context(), "status lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		Status:            rec.Status,
		TextContent:       rec.TextContent,
		GeneratedImageURL: rec.GeneratedImageURL,
		TokensUsed:        rec.TokensUsed,
		Error:             rec.Error,
	})
}

// Reprocess moves an errored record back to pending. This is the explicit
// recovery path; the worker's claim query never picks errored records up
// on its own.
func (h *Handlers) Reprocess(c *gin.Context) {
	err := h.repo.Requeue(c.Request.Context(), c.Param("id"), currentUserID(c))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, common.ErrNotRequeueable):
		c.JSON(http.StatusConflict, gin.H{"error": "record is not in an errored state"})
	case err != nil:
		h.logger.Error(c.Request.Context(), "requeue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "requeue failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": models.StatusPending})
	}
}

// Usage reports the caller's token consumption against their plan limit.
func (h *Handlers) Usage(c *gin.Context) {
	u, err := h.meter.Status(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error(c.Request.Context(), "usage lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// sanitizeName keeps object keys flat and predictable: path separators and
// whitespace collapse to single dashes.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
