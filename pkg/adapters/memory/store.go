// Package memory provides an in-process ReportStore. It is the default for
// single-shot CLI invocations and the backing store for tests.
package memory

import (
	"context"
	"sync"

	"github.com/probaah/probaah/pkg/domain"
)

// Store implements ports.ReportStore with a mutex-guarded map plus an
// insertion-order index.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*domain.WorkflowReport
	order   []string // run IDs, oldest first
}

// New creates an empty store.
func New() *Store {
	return &Store{reports: make(map[string]*domain.WorkflowReport)}
}

// Save persists the report. Saving an existing run ID moves it to the front
// of Latest ordering.
func (s *Store) Save(ctx context.Context, report *domain.WorkflowReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.RunID]; exists {
		s.removeFromOrder(report.RunID)
	}
	s.reports[report.RunID] = report
	s.order = append(s.order, report.RunID)
	return nil
}

// Load retrieves a report by run ID.
func (s *Store) Load(ctx context.Context, runID string) (*domain.WorkflowReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return report, nil
}

// Latest returns the most recently saved report.
func (s *Store) Latest(ctx context.Context) (*domain.WorkflowReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return s.reports[s.order[len(s.order)-1]], nil
}

// Delete removes a report by run ID.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reports, runID)
	s.removeFromOrder(runID)
	return nil
}

// List returns the stored run IDs, newest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.order[i])
	}
	return runs, nil
}

func (s *Store) removeFromOrder(runID string) {
	for i, id := range s.order {
		if id == runID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
