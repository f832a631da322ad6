package assessments

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores assessments in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Assessment
	byOrg map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Assessment),
		byOrg: make(map[string][]string),
	}
}

// Create stores the assessment.
func (r *MemoryRepo) Create(ctx context.Context, assessment Assessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[assessment.ID] = assessment
	r.byOrg[assessment.OrgID] = append(r.byOrg[assessment.OrgID], assessment.ID)
	return nil
}

// GetByID returns an assessment owned by orgID.
func (r *MemoryRepo) GetByID(ctx context.Context, orgID, assessmentID string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[assessmentID]
	if !ok || a.OrgID != orgID {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

// ListByOrg returns assessments for an organization, newest first, with limit/offset.
func (r *MemoryRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	ids := r.byOrg[orgID]
	items := make([]Assessment, 0, len(ids))
	for _, id := range ids {
		items = append(items, r.byID[id])
	}
	r.mu.RUnlock()

	if offset >= len(items) {
		return []Assessment{}, nil
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
