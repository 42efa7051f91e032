package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timmy/vidbatch/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository handles batch report ledger operations.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *ReportRepository: repository instance bound to db.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SaveReport inserts a ledger row for a generated report.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - report: generated batch report to record.
//
// Returns:
//   - error: non-nil if the insert fails.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.BatchReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report payload: %w", err)
	}

	row := &domain.ReportRecord{
		BatchID:        report.BatchID,
		GeneratedAt:    report.GeneratedAt,
		TotalTasks:     report.Summary.Total,
		Succeeded:      report.Summary.Succeeded,
		Failed:         report.Summary.Failed,
		SuccessRate:    report.Performance.SuccessRatePercent,
		ElapsedSeconds: report.Summary.ElapsedSeconds,
		ArtifactsBytes: report.Downloads.TotalBytes,
		Payload:        string(payload),
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// ListReports retrieves ledger rows, newest first, with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.ReportRecord: matching ledger rows.
//   - error: non-nil if the query fails.
func (r *ReportRepository) ListReports(ctx context.Context, limit, offset int) ([]domain.ReportRecord, error) {
	var rows []domain.ReportRecord
	if err := r.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByBatchID retrieves all ledger rows for one batch, oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - batchID: batch identifier.
//
// Returns:
//   - []domain.ReportRecord: matching ledger rows.
//   - error: non-nil if the query fails.
func (r *ReportRepository) GetByBatchID(ctx context.Context, batchID string) ([]domain.ReportRecord, error) {
	var rows []domain.ReportRecord
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("generated_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
