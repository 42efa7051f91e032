package domain

import "time"

// ReportRecord is the database row kept for each generated batch
// report. The full report stays in the JSON report file; this row holds
// the queryable headline figures plus the raw report payload.
type ReportRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BatchID     string    `gorm:"index;not null" json:"batch_id"`
	GeneratedAt time.Time `gorm:"index;not null" json:"generated_at"`

	TotalTasks     int     `gorm:"not null" json:"total_tasks"`
	Succeeded      int     `gorm:"not null" json:"succeeded"`
	Failed         int     `gorm:"not null" json:"failed"`
	SuccessRate    float64 `gorm:"not null" json:"success_rate"`
	ElapsedSeconds float64 `gorm:"not null" json:"elapsed_seconds"`
	ArtifactsBytes int64   `gorm:"not null" json:"artifacts_bytes"`

	Payload string `gorm:"type:text" json:"-"` // full report as JSON

	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the default table name.
func (ReportRecord) TableName() string {
	return "batch_reports"
}
