package database

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/leadbook/internal/core"
)

// MemoryStore keeps buyers in process memory. It is safe for concurrent
// use and follows the same transactional rules as PostgresStore.
type MemoryStore struct {
	mu      sync.RWMutex
	buyers  map[string]core.Buyer
	history map[string][]core.History // by buyer, oldest first

	// FailCreate, when set, is returned by CreateBuyers before anything is
	// written. Tests use it to exercise rollback paths.
	FailCreate error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buyers:  make(map[string]core.Buyer),
		history: make(map[string][]core.History),
	}
}

var _ core.Store = (*MemoryStore)(nil)

func cloneBuyer(b core.Buyer) core.Buyer {
	b.Tags = append([]string{}, b.Tags...)
	if b.BudgetMin != nil {
		v := *b.BudgetMin
		b.BudgetMin = &v
	}
	if b.BudgetMax != nil {
		v := *b.BudgetMax
		b.BudgetMax = &v
	}
	return b
}

func (m *MemoryStore) CreateBuyers(ctx context.Context, buyers []core.Buyer, history []core.History) ([]core.Buyer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		return nil, m.FailCreate
	}
	for _, b := range buyers {
		if _, exists := m.buyers[b.ID]; exists {
			return nil, errDuplicateKey(b.ID)
		}
	}

	out := make([]core.Buyer, len(buyers))
	for i, b := range buyers {
		m.buyers[b.ID] = cloneBuyer(b)
		out[i] = cloneBuyer(b)
	}
	for _, h := range history {
		m.history[h.BuyerID] = append(m.history[h.BuyerID], h)
	}
	return out, nil
}

type errDuplicateKey string

func (e errDuplicateKey) Error() string {
	return "duplicate key value violates unique constraint (id=" + string(e) + ")"
}

func (m *MemoryStore) GetBuyer(ctx context.Context, id string) (core.Buyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buyers[id]
	if !ok {
		return core.Buyer{}, core.ErrNotFound
	}
	return cloneBuyer(b), nil
}

// UpdateBuyer holds the write lock for the whole read-modify-write, which
// plays the role of SELECT ... FOR UPDATE.
func (m *MemoryStore) UpdateBuyer(ctx context.Context, id string, fn core.UpdateFunc) (core.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.buyers[id]
	if !ok {
		return core.Buyer{}, core.ErrNotFound
	}

	next, h, err := fn(cloneBuyer(current))
	if err != nil {
		return core.Buyer{}, err
	}
	if h == nil {
		return cloneBuyer(current), nil
	}

	m.buyers[id] = cloneBuyer(next)
	m.history[id] = append(m.history[id], *h)
	return cloneBuyer(next), nil
}

func (m *MemoryStore) DeleteBuyer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buyers[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.buyers, id)
	delete(m.history, id)
	return nil
}

func matches(b core.Buyer, f core.ListFilter) bool {
	if f.City != "" && b.City != f.City {
		return false
	}
	if f.PropertyType != "" && b.PropertyType != f.PropertyType {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Timeline != "" && b.Timeline != f.Timeline {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.FullName), term) &&
			!strings.Contains(strings.ToLower(b.Email), term) &&
			!strings.Contains(b.Phone, f.Search) {
			return false
		}
	}
	return true
}

// sorted returns the matching buyers ordered like the SQL store:
// updatedAt descending, then id.
func (m *MemoryStore) sorted(f core.ListFilter) []core.Buyer {
	var out []core.Buyer
	for _, b := range m.buyers {
		if matches(b, f) {
			out = append(out, cloneBuyer(b))
		}
	}
	slices.SortFunc(out, func(a, b core.Buyer) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (m *MemoryStore) ListBuyers(ctx context.Context, f core.ListFilter) ([]core.Buyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sorted(f)
	if f.Limit <= 0 {
		return all, nil
	}
	if f.Offset >= len(all) {
		return []core.Buyer{}, nil
	}
	end := min(f.Offset+f.Limit, len(all))
	return all[f.Offset:end], nil
}

func (m *MemoryStore) CountBuyers(ctx context.Context, f core.ListFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, b := range m.buyers {
		if matches(b, f) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AllBuyers(ctx context.Context) ([]core.Buyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(core.ListFilter{}), nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, buyerID string, limit int) ([]core.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.history[buyerID]
	out := make([]core.History, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
