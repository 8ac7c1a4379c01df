package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rankboard/rankboard/internal/chat"
	"github.com/rankboard/rankboard/internal/chat/repository"
	"github.com/rankboard/rankboard/pkg/logger"
)

// Outbound event names for transcript confirmations.
const (
	EventChatMessage      = "chatMessage"
	EventMessageEdited    = "messageEdited"
	EventMessageDeleted   = "messageDeleted"
	EventUserColorUpdated = "userColorUpdated"
	EventChatCleared      = "chatCleared"
)

// clearBatchSize bounds how many documents a single clear batch removes.
const clearBatchSize = 500

// Repository is the durable-store surface the transcript manager needs.
// Lookups address messages by their numeric id and affect only the first
// match; duplicates are never reconciled.
type Repository interface {
	Append(ctx context.Context, msg *chat.Message) error
	UpdateText(ctx context.Context, id chat.MessageID, text string) (*chat.Message, error)
	Delete(ctx context.Context, id chat.MessageID) error
	ListOrdered(ctx context.Context) ([]chat.Message, error)
	Clear(ctx context.Context, batchSize int) (int64, error)
	RepaintColor(ctx context.Context, user, color string) (int64, error)
}

// Broadcaster delivers an outbound event to every session, or to every
// session except the originator.
type Broadcaster interface {
	BroadcastAll(event string, data interface{})
	BroadcastExcept(senderID string, event string, data interface{})
}

// EditedPayload carries the resolved attribution so clients can update a
// message without a second round trip.
type EditedPayload struct {
	ID    chat.MessageID `json:"id"`
	Text  string         `json:"text"`
	User  string         `json:"user"`
	Color string         `json:"color,omitempty"`
}

type DeletedPayload struct {
	ID chat.MessageID `json:"id"`
}

type ColorPayload struct {
	User  string `json:"user"`
	Color string `json:"color"`
}

// Service owns the chat transcript. Message ids are assigned here, at append
// time, from a process-wide monotonic counter; any client-supplied id is
// ignored, which removes the duplicate-id hazard of client-generated keys.
// The sender learns the canonical id from the append broadcast it receives
// like everyone else.
type Service struct {
	repo  Repository
	bc    Broadcaster
	idSeq atomic.Int64
}

func NewService(repo Repository, bc Broadcaster) *Service {
	s := &Service{repo: repo, bc: bc}
	// seed with wall-clock millis so ids stay unique across restarts and
	// keep the numeric shape legacy clients expect
	s.idSeq.Store(time.Now().UnixMilli())
	return s
}

func (s *Service) nextID() chat.MessageID {
	return chat.MessageID(s.idSeq.Add(1))
}

// History returns the full transcript ordered by timestamp ascending.
func (s *Service) History(ctx context.Context) ([]chat.Message, error) {
	return s.repo.ListOrdered(ctx)
}

// Append stamps server time, assigns the canonical id, persists the message
// and broadcasts it to all sessions including the sender.
func (s *Service) Append(ctx context.Context, user, text, color string) (*chat.Message, error) {
	msg := &chat.Message{
		ID:        s.nextID(),
		User:      user,
		Text:      text,
		Color:     color,
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	s.bc.BroadcastAll(EventChatMessage, msg)
	return msg, nil
}

// Edit rewrites the text of the message addressed by id. A missing id is a
// defined no-op: nothing is written and nothing is broadcast.
func (s *Service) Edit(ctx context.Context, id chat.MessageID, text string) error {
	updated, err := s.repo.UpdateText(ctx, id, text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Debugf("edit of unknown message id %d ignored", id)
			return nil
		}
		return fmt.Errorf("edit message %d: %w", id, err)
	}
	s.bc.BroadcastAll(EventMessageEdited, EditedPayload{
		ID:    updated.ID,
		Text:  updated.Text,
		User:  updated.User,
		Color: updated.Color,
	})
	return nil
}

// Delete removes the message addressed by id. A missing id is a no-op.
func (s *Service) Delete(ctx context.Context, id chat.MessageID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Debugf("delete of unknown message id %d ignored", id)
			return nil
		}
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	s.bc.BroadcastAll(EventMessageDeleted, DeletedPayload{ID: id})
	return nil
}

// Clear drains the whole transcript in size-bounded batches and then
// broadcasts a single confirmation. The confirmation is sent even when the
// transcript was already empty: it reports the final state, not work done,
// which also makes repeated clears indistinguishable to clients.
func (s *Service) Clear(ctx context.Context) error {
	deleted, err := s.repo.Clear(ctx, clearBatchSize)
	if err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	logger.Debugf("transcript cleared, %d messages removed", deleted)
	s.bc.BroadcastAll(EventChatCleared, nil)
	return nil
}

// RepaintUserColor broadcasts the new color to everyone except the sender
// first, then rewrites the stored messages. The broadcast deliberately
// precedes the durable write to cut perceived latency; readers may observe a
// stale color until the rewrite commits (eventually consistent, for this one
// operation only).
func (s *Service) RepaintUserColor(ctx context.Context, senderID, user, color string) error {
	s.bc.BroadcastExcept(senderID, EventUserColorUpdated, ColorPayload{User: user, Color: color})
	updated, err := s.repo.RepaintColor(ctx, user, color)
	if err != nil {
		return fmt.Errorf("repaint color for %q: %w", user, err)
	}
	logger.Debugf("repainted %d messages for user %q", updated, user)
	return nil
}
