package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/vidbatch/internal/api/middleware"
	"github.com/timmy/vidbatch/internal/repository"
)

// ReportHandler serves the batch report ledger.
type ReportHandler struct {
	repo *repository.ReportRepository
}

// NewReportHandler creates a new report handler.
// Parameters:
//   - repo: report ledger repository.
//
// Returns:
//   - *ReportHandler: initialized handler.
func NewReportHandler(repo *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{repo: repo}
}

// ListReports handles GET /api/v1/reports.
func (h *ReportHandler) ListReports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	rows, err := h.repo.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": rows,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetBatchReports handles GET /api/v1/reports/:batch_id.
func (h *ReportHandler) GetBatchReports(c *gin.Context) {
	batchID := c.Param("batch_id")
	rows, err := h.repo.GetByBatchID(c.Request.Context(), batchID)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to load batch reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reports for batch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": rows})
}
