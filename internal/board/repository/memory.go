package repository

import (
	"context"
	"sync"

	"github.com/rankboard/rankboard/internal/board"
)

// MemoryRepo keeps the board state in process memory. Used for unit tests
// and as a fallback when MongoDB is not configured.
type MemoryRepo struct {
	mu      sync.RWMutex
	lists   *board.RankingLists
	headers *board.Headers
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (m *MemoryRepo) GetLists(ctx context.Context) (board.RankingLists, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lists == nil {
		// a board with no prior writes resolves to empty lists, never "missing"
		return board.RankingLists{ListA: []string{}, ListB: []string{}}, nil
	}
	return board.RankingLists{
		ListA: append([]string{}, m.lists.ListA...),
		ListB: append([]string{}, m.lists.ListB...),
	}, nil
}

// SetLists replaces both lists together. The swap is a single assignment
// under the lock, so readers can never observe one new list next to one old.
func (m *MemoryRepo) SetLists(ctx context.Context, lists board.RankingLists) error {
	cp := board.RankingLists{
		ListA: append([]string{}, lists.ListA...),
		ListB: append([]string{}, lists.ListB...),
	}
	m.mu.Lock()
	m.lists = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepo) GetHeaders(ctx context.Context) (*board.Headers, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.headers == nil {
		return nil, nil
	}
	h := *m.headers
	return &h, nil
}

func (m *MemoryRepo) SetHeaders(ctx context.Context, h board.Headers) error {
	m.mu.Lock()
	m.headers = &h
	m.mu.Unlock()
	return nil
}
