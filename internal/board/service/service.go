package service

import (
	"context"
	"fmt"

	"github.com/rankboard/rankboard/internal/board"
)

// Outbound event names for board confirmations.
const (
	EventRankingLists   = "rankingLists"
	EventHeadersUpdated = "headersUpdated"
)

// Repository is the durable-store surface the synchronizer needs.
type Repository interface {
	GetLists(ctx context.Context) (board.RankingLists, error)
	// SetLists must replace both list documents in one batched commit.
	SetLists(ctx context.Context, lists board.RankingLists) error
	// GetHeaders returns nil when no headers record exists yet.
	GetHeaders(ctx context.Context) (*board.Headers, error)
	SetHeaders(ctx context.Context, h board.Headers) error
}

// Broadcaster fans an event out to every connected session.
type Broadcaster interface {
	BroadcastAll(event string, data interface{})
}

// Service owns the ranking-lists-and-headers aggregate. It holds no state
// between calls; every operation re-reads or blind-writes the store, which
// remains the single source of truth.
type Service struct {
	repo Repository
	bc   Broadcaster
}

func NewService(repo Repository, bc Broadcaster) *Service {
	return &Service{repo: repo, bc: bc}
}

// Lists reads both ranking lists. A board with no prior writes resolves to
// two empty lists.
func (s *Service) Lists(ctx context.Context) (board.RankingLists, error) {
	return s.repo.GetLists(ctx)
}

// Headers reads the display headers, substituting the defaults when the
// record has never been written.
func (s *Service) Headers(ctx context.Context) (board.Headers, error) {
	h, err := s.repo.GetHeaders(ctx)
	if err != nil {
		return board.Headers{}, err
	}
	if h == nil {
		return board.DefaultHeaders(), nil
	}
	return *h, nil
}

// UpdateLists overwrites both lists wholesale (last writer wins, no merge)
// and broadcasts the new state to every session including the sender, so the
// sender's optimistic UI reconciles with the committed value.
func (s *Service) UpdateLists(ctx context.Context, lists board.RankingLists) error {
	if lists.ListA == nil {
		lists.ListA = []string{}
	}
	if lists.ListB == nil {
		lists.ListB = []string{}
	}
	if err := s.repo.SetLists(ctx, lists); err != nil {
		return fmt.Errorf("set ranking lists: %w", err)
	}
	s.bc.BroadcastAll(EventRankingLists, lists)
	return nil
}

// UpdateHeaders overwrites the headers record and broadcasts it to all.
func (s *Service) UpdateHeaders(ctx context.Context, h board.Headers) error {
	if err := s.repo.SetHeaders(ctx, h); err != nil {
		return fmt.Errorf("set headers: %w", err)
	}
	s.bc.BroadcastAll(EventHeadersUpdated, h)
	return nil
}
