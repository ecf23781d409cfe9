// Package memory keeps run history in process memory (default for the CLI).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

type RunRepository struct {
	mu   sync.RWMutex
	runs map[domain.RunID]domain.RunRecord
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[domain.RunID]domain.RunRecord)}
}

// Save stores a copy, callers may keep mutating rec.
func (r *RunRepository) Save(_ context.Context, rec *domain.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[rec.ID] = clone(*rec)
	return nil
}

func (r *RunRepository) Get(_ context.Context, id domain.RunID) (*domain.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	out := clone(rec)
	return &out, nil
}

// Latest newest first, repoID 0 = semua repo
func (r *RunRepository) Latest(_ context.Context, repoID int64, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	r.mu.RLock()
	all := make([]domain.RunRecord, 0, len(r.runs))
	for _, rec := range r.runs {
		if repoID == 0 || rec.RepoID == repoID {
			all = append(all, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}

	out := make([]*domain.RunRecord, 0, len(all))
	for i := range all {
		rec := clone(all[i])
		out = append(out, &rec)
	}
	return out, nil
}

func (r *RunRepository) Summary(_ context.Context, since time.Time) (domain.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s domain.RunSummary
	for _, rec := range r.runs {
		if rec.StartedAt.Before(since) {
			continue
		}
		s.Total++
		switch rec.Verdict {
		case domain.VerdictClean, domain.VerdictCleanWithFalsePositives:
			s.Passed++
		case domain.VerdictIssuesFound:
			s.Failed++
		case domain.VerdictTimeout:
			s.TimedOut++
		case domain.VerdictError:
			s.Errored++
		}
	}
	return s, nil
}

func clone(rec domain.RunRecord) domain.RunRecord {
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		rec.FinishedAt = &t
	}
	return rec
}
