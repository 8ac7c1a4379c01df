package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rankboard/rankboard/internal/chat"
)

var ErrNotFound = errors.New("message not found")

// MemoryRepo keeps the transcript in process memory. Used for unit tests and
// as a fallback when MongoDB is not configured.
type MemoryRepo struct {
	mu       sync.RWMutex
	messages []chat.Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (m *MemoryRepo) Append(ctx context.Context, msg *chat.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, *msg)
	m.mu.Unlock()
	return nil
}

// UpdateText mutates the text of the first message matching id, leaving
// user/color/timestamp untouched, and returns the updated message.
func (m *MemoryRepo) UpdateText(ctx context.Context, id chat.MessageID, text string) (*chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Text = text
			out := m.messages[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes the first message matching id. Duplicates are never
// reconciled; later matches stay in place.
func (m *MemoryRepo) Delete(ctx context.Context, id chat.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListOrdered returns the transcript sorted by timestamp ascending.
func (m *MemoryRepo) ListOrdered(ctx context.Context) ([]chat.Message, error) {
	m.mu.RLock()
	out := append([]chat.Message{}, m.messages...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Clear drains the transcript in batches of at most batchSize, looping until
// nothing is left, and reports how many messages were removed.
func (m *MemoryRepo) Clear(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	var deleted int64
	for {
		m.mu.Lock()
		n := len(m.messages)
		if n == 0 {
			m.mu.Unlock()
			return deleted, nil
		}
		if n > batchSize {
			n = batchSize
		}
		m.messages = m.messages[n:]
		m.mu.Unlock()
		deleted += int64(n)
	}
}

// RepaintColor rewrites the color of every message from user.
func (m *MemoryRepo) RepaintColor(ctx context.Context, user, color string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for i := range m.messages {
		if m.messages[i].User == user {
			m.messages[i].Color = color
			updated++
		}
	}
	return updated, nil
}
