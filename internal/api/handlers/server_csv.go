package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "dirsync.io/dirsync/internal/pkg/errors"
	"dirsync.io/dirsync/internal/pkg/logger"
	"dirsync.io/dirsync/internal/provider"
	"dirsync.io/dirsync/internal/repository"
)

// UploadEmployeeCSV handles POST /integrations/csv/upload. The file is
// parsed and validated synchronously so a malformed upload is rejected
// before anything persists; the merge itself runs detached on the import
// pool and the response returns 202 immediately.
func (s *Server) UploadEmployeeCSV(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		_ = c.Error(apperrors.ErrValidation("name", "integration name is required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(apperrors.ErrValidation("file", "csv file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeCSVParseFailed, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	employees, err := provider.ParseEmployeeCSV(file)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeCSVParseFailed, err.Error(), http.StatusBadRequest))
		return
	}
	if len(employees) == 0 {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeCSVParseFailed, "csv contains no employee rows"))
		return
	}

	integration, err := s.integrations.Create(c.Request.Context(), repository.CreateIntegrationParams{
		Name:   name,
		Type:   provider.TypeCSV,
		Status: repository.IntegrationStatusActive,
	})
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeIntegrationCreateFailed, "failed to create integration", http.StatusInternalServerError))
		return
	}

	// Detached: the merge survives the request ending but respects
	// service shutdown.
	submitErr := s.pools.SubmitDetached("import", func(ctx context.Context) {
		result, err := s.employees.MergeFromIntegration(ctx, integration.ID, employees)
		if err != nil {
			logger.Error("csv import merge failed",
				zap.String("integration_id", integration.ID.String()),
				zap.Error(err),
			)
			return
		}
		if err := s.integrations.MarkSynced(ctx, integration.ID, s.now().UTC()); err != nil {
			logger.Warn("failed to stamp csv import",
				zap.String("integration_id", integration.ID.String()),
				zap.Error(err),
			)
		}
		logger.Info("csv import completed",
			zap.String("integration_id", integration.ID.String()),
			zap.Int("inserted", result.Inserted),
			zap.Int("updated", result.Updated),
		)
	})
	if submitErr != nil {
		logger.Error("failed to submit csv import task", zap.Error(submitErr))
		_ = c.Error(apperrors.Internal(apperrors.CodeIntegrationCreateFailed, "import queue is unavailable"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"integration_id": integration.ID,
		"records":        len(employees),
	})
}
