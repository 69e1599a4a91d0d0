package ports

import (
	"context"

	"github.com/probaah/probaah/pkg/domain"
)

// ReportStore persists workflow reports. Chained requests ("analyze the last
// run") and the status/serve surfaces read back through it.
type ReportStore interface {
	// Save persists the report under its run ID.
	Save(ctx context.Context, report *domain.WorkflowReport) error

	// Load retrieves a report by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.WorkflowReport, error)

	// Latest returns the most recently saved report.
	// Returns domain.ErrRunNotFound when the store is empty.
	Latest(ctx context.Context) (*domain.WorkflowReport, error)

	// Delete removes a report by run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the stored run IDs, newest first.
	List(ctx context.Context) ([]string, error)
}
