package handler

import (
	"errors"
	"net/http"
	"os"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/timmy/vidbatch/internal/api/middleware"
	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
)

// BatchHandler serves read-only views over the persisted batch queue
// files. The pipeline CLI owns all writes; this handler never mutates.
type BatchHandler struct {
	store *batchstore.Store
}

// NewBatchHandler creates a new batch handler.
// Parameters:
//   - store: batch queue store to read from.
//
// Returns:
//   - *BatchHandler: initialized handler.
func NewBatchHandler(store *batchstore.Store) *BatchHandler {
	return &BatchHandler{store: store}
}

// GetLatest handles GET /api/v1/batches/latest.
func (h *BatchHandler) GetLatest(c *gin.Context) {
	path, err := h.store.Latest()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no batches found"})
		return
	}
	batch, err := batchstore.LoadFile(path)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to load latest batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}
	c.JSON(http.StatusOK, batchView(batch))
}

// batchIDPattern matches the timestamp shape batch IDs are minted
// with. Anything else never names a queue file and must not reach the
// filesystem layer.
var batchIDPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// GetBatch handles GET /api/v1/batches/:id.
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id := c.Param("id")
	if !batchIDPattern.MatchString(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	batch, err := h.store.Load(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		middleware.GetLogger(c).WithError(err).Error("Failed to load batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}
	c.JSON(http.StatusOK, batchView(batch))
}

func batchView(batch *domain.Batch) gin.H {
	return gin.H{
		"batch":         batch,
		"status_counts": batch.CountByStatus(),
		"in_flight":     len(batch.NonTerminal()),
	}
}
