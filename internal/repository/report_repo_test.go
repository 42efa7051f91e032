package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/vidbatch/internal/config"
	"github.com/timmy/vidbatch/internal/domain"
)

func testRepo(t *testing.T) *ReportRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewReportRepository(db)
}

func sampleReport(batchID string, generatedAt time.Time) *domain.BatchReport {
	return &domain.BatchReport{
		BatchID:     batchID,
		GeneratedAt: generatedAt,
		Summary: domain.BatchSummary{
			Total:          10,
			Succeeded:      8,
			Failed:         2,
			ElapsedSeconds: 200,
		},
		Performance: domain.PerformanceMetrics{SuccessRatePercent: 80},
	}
}

func TestSaveAndListReports(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := repo.SaveReport(ctx, sampleReport("20260830_120000", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	rows, err := repo.ListReports(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].GeneratedAt.Before(rows[1].GeneratedAt) {
		t.Error("rows not ordered newest first")
	}
	if rows[0].SuccessRate != 80 || rows[0].TotalTasks != 10 {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[0].Payload == "" {
		t.Error("payload not stored")
	}
}

func TestGetByBatchID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := repo.SaveReport(ctx, sampleReport("batch_a", base)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveReport(ctx, sampleReport("batch_b", base.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.GetByBatchID(ctx, "batch_a")
	if err != nil {
		t.Fatalf("GetByBatchID: %v", err)
	}
	if len(rows) != 1 || rows[0].BatchID != "batch_a" {
		t.Errorf("rows = %+v", rows)
	}

	rows, err = repo.GetByBatchID(ctx, "missing")
	if err != nil {
		t.Fatalf("GetByBatchID missing: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}
