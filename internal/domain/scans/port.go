package scans

import (
	"context"
	"time"
)

// ScanAPI port (interface ke remote scanning service)
type ScanAPI interface {
	// Dispatch submits exactly one scan-creation request.
	Dispatch(ctx context.Context, t TriggerContext) error
	// Status returns Visible=false for "not found yet".
	Status(ctx context.Context, repoID, runID int64) (StatusReport, error)
	Issues(ctx context.Context, id ScanID) ([]Finding, error)
}

// RunRepository port (interface untuk persistence run history)
type RunRepository interface {
	Save(ctx context.Context, r *RunRecord) error
	Get(ctx context.Context, id RunID) (*RunRecord, error)
	Latest(ctx context.Context, repoID int64, limit int) ([]*RunRecord, error)
	Summary(ctx context.Context, since time.Time) (RunSummary, error)
}

// ReportStore port (interface untuk penyimpanan report JSON)
type ReportStore interface {
	UploadReport(ctx context.Context, key string, body []byte) (string, error)
}
