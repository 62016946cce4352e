package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/davprobe/internal/domain"
	"github.com/hamed0406/davprobe/internal/repo"
)

const DefaultHistory = 100

// Store keeps targets and a bounded per-target result history in memory.
type Store struct {
	mu      sync.RWMutex
	keep    int
	targets map[domain.TargetID]*domain.Target
	results map[domain.TargetID][]domain.CheckResult // oldest first
}

// New returns a store keeping at most keep results per target
// (DefaultHistory when keep <= 0).
func New(keep int) *Store {
	if keep <= 0 {
		keep = DefaultHistory
	}
	return &Store{
		keep:    keep,
		targets: make(map[domain.TargetID]*domain.Target),
		results: make(map[domain.TargetID][]domain.CheckResult),
	}
}

func (m *Store) Add(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.targets[t.ID] = t
	return nil
}

func (m *Store) List(ctx context.Context) ([]*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t, nil
}

func (m *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	h := append(m.results[r.TargetID], *r)
	if len(h) > m.keep {
		h = h[len(h)-m.keep:]
	}
	m.results[r.TargetID] = h
	return nil
}

func (m *Store) Latest(ctx context.Context) ([]repo.LatestRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]repo.LatestRow, 0, len(m.results))
	for tid, h := range m.results {
		if len(h) == 0 {
			continue
		}
		latest := h[0]
		for _, r := range h[1:] {
			if !r.CheckedAt.Before(latest.CheckedAt) {
				latest = r
			}
		}
		row := repo.LatestRow{Result: latest}
		if t := m.targets[tid]; t != nil {
			row.Target = *t
		} else {
			row.Target = domain.Target{ID: tid}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target.ID < out[j].Target.ID })
	return out, nil
}

// History returns up to limit results for id, newest first.
func (m *Store) History(ctx context.Context, id domain.TargetID, limit int) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.results[id]
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	out := make([]domain.CheckResult, 0, limit)
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out, nil
}

// Alerts is an in-memory repo.AlertStore.
type Alerts struct {
	mu sync.Mutex
	m  map[domain.TargetID]repo.AlertRecord
}

func NewAlerts() *Alerts {
	return &Alerts{m: make(map[domain.TargetID]repo.AlertRecord)}
}

func (a *Alerts) Get(ctx context.Context, id domain.TargetID) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.m[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, id domain.TargetID, status string, sentAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := repo.AlertRecord{TargetID: id, LastStatus: status}
	if !sentAt.IsZero() {
		ts := sentAt
		rec.LastSentAt = &ts
	} else if prev, ok := a.m[id]; ok {
		rec.LastSentAt = prev.LastSentAt
	}
	a.m[id] = rec
	return nil
}
