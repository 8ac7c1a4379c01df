package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rankboard/rankboard/internal/chat"
	"github.com/rankboard/rankboard/internal/chat/repository"
	"github.com/stretchr/testify/require"
)

type broadcastRec struct {
	Event  string
	Data   interface{}
	Except string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRec
	trace  *callTrace
}

func (r *recordingBroadcaster) BroadcastAll(event string, data interface{}) {
	r.record(broadcastRec{Event: event, Data: data})
}

func (r *recordingBroadcaster) BroadcastExcept(senderID string, event string, data interface{}) {
	r.record(broadcastRec{Event: event, Data: data, Except: senderID})
}

func (r *recordingBroadcaster) record(rec broadcastRec) {
	r.mu.Lock()
	r.events = append(r.events, rec)
	r.mu.Unlock()
	if r.trace != nil {
		r.trace.add("broadcast:" + rec.Event)
	}
}

func (r *recordingBroadcaster) all() []broadcastRec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastRec{}, r.events...)
}

// callTrace records the interleaving of store and broadcast calls.
type callTrace struct {
	mu    sync.Mutex
	calls []string
}

func (c *callTrace) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

// tracingRepo wraps the memory repo and notes repaint writes in the trace.
type tracingRepo struct {
	Repository
	trace *callTrace
}

func (t *tracingRepo) RepaintColor(ctx context.Context, user, color string) (int64, error) {
	t.trace.add("store:repaint")
	return t.Repository.RepaintColor(ctx, user, color)
}

// failingRepo simulates a store outage for every operation.
type failingRepo struct{}

var errDown = errors.New("store down")

func (failingRepo) Append(ctx context.Context, msg *chat.Message) error { return errDown }
func (failingRepo) UpdateText(ctx context.Context, id chat.MessageID, text string) (*chat.Message, error) {
	return nil, errDown
}
func (failingRepo) Delete(ctx context.Context, id chat.MessageID) error { return errDown }
func (failingRepo) ListOrdered(ctx context.Context) ([]chat.Message, error) {
	return nil, errDown
}
func (failingRepo) Clear(ctx context.Context, batchSize int) (int64, error) { return 0, errDown }
func (failingRepo) RepaintColor(ctx context.Context, user, color string) (int64, error) {
	return 0, errDown
}

func newTestService() (*Service, *repository.MemoryRepo, *recordingBroadcaster) {
	repo := repository.NewMemoryRepo()
	bc := &recordingBroadcaster{}
	return NewService(repo, bc), repo, bc
}

func TestAppend_StampsServerTimeAndAssignsIDs(t *testing.T) {
	svc, _, bc := newTestService()
	ctx := context.Background()

	before := time.Now().UTC()
	m1, err := svc.Append(ctx, "bob", "hi", "#00f")
	require.NoError(t, err)
	m2, err := svc.Append(ctx, "bob", "again", "")
	require.NoError(t, err)

	require.False(t, m1.Timestamp.Before(before))
	require.NotZero(t, m1.ID)
	require.Greater(t, int64(m2.ID), int64(m1.ID))

	events := bc.all()
	require.Len(t, events, 2)
	require.Equal(t, EventChatMessage, events[0].Event)
	require.Equal(t, m1, events[0].Data)
}

func TestAppend_StoreFailureSuppressesBroadcast(t *testing.T) {
	bc := &recordingBroadcaster{}
	svc := NewService(failingRepo{}, bc)

	_, err := svc.Append(context.Background(), "bob", "hi", "")
	require.Error(t, err)
	require.Empty(t, bc.all())
}

func TestEdit_MutatesTextAndBroadcastsAttribution(t *testing.T) {
	svc, _, bc := newTestService()
	ctx := context.Background()

	m, err := svc.Append(ctx, "bob", "hi", "#00f")
	require.NoError(t, err)

	require.NoError(t, svc.Edit(ctx, m.ID, "hi!"))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Equal(t, "hi!", history[0].Text)
	require.Equal(t, m.Timestamp, history[0].Timestamp)

	events := bc.all()
	require.Len(t, events, 2)
	require.Equal(t, EventMessageEdited, events[1].Event)
	require.Equal(t, EditedPayload{ID: m.ID, Text: "hi!", User: "bob", Color: "#00f"}, events[1].Data)
}

func TestEdit_UnknownIDIsSilentNoOp(t *testing.T) {
	svc, _, bc := newTestService()
	require.NoError(t, svc.Edit(context.Background(), 12345, "x"))
	require.Empty(t, bc.all())
}

func TestDelete_RemovesAndBroadcasts(t *testing.T) {
	svc, _, bc := newTestService()
	ctx := context.Background()

	m, err := svc.Append(ctx, "bob", "bye", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, m.ID))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Empty(t, history)

	events := bc.all()
	require.Len(t, events, 2)
	require.Equal(t, EventMessageDeleted, events[1].Event)
	require.Equal(t, DeletedPayload{ID: m.ID}, events[1].Data)
}

func TestDelete_UnknownIDIsSilentNoOp(t *testing.T) {
	svc, _, bc := newTestService()
	require.NoError(t, svc.Delete(context.Background(), 12345))
	require.Empty(t, bc.all())
}

func TestClear_IsIdempotentAndAlwaysConfirms(t *testing.T) {
	svc, _, bc := newTestService()
	ctx := context.Background()

	_, err := svc.Append(ctx, "bob", "one", "")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "bob", "two", "")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))
	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Empty(t, history)

	// second clear on an empty transcript must not throw and still confirms
	require.NoError(t, svc.Clear(ctx))

	var cleared int
	for _, e := range bc.all() {
		if e.Event == EventChatCleared {
			cleared++
		}
	}
	require.Equal(t, 2, cleared)
}

func TestRepaintUserColor_BroadcastPrecedesWrite(t *testing.T) {
	trace := &callTrace{}
	repo := &tracingRepo{Repository: repository.NewMemoryRepo(), trace: trace}
	bc := &recordingBroadcaster{trace: trace}
	svc := NewService(repo, bc)
	ctx := context.Background()

	_, err := svc.Append(ctx, "alice", "hi", "#00f")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "bob", "yo", "#0f0")
	require.NoError(t, err)

	require.NoError(t, svc.RepaintUserColor(ctx, "session-1", "alice", "#f00"))

	// the optimistic notification goes out before the durable write
	require.Equal(t, "broadcast:"+EventUserColorUpdated, trace.calls[len(trace.calls)-2])
	require.Equal(t, "store:repaint", trace.calls[len(trace.calls)-1])

	// notification skips the sender
	events := bc.all()
	last := events[len(events)-1]
	require.Equal(t, EventUserColorUpdated, last.Event)
	require.Equal(t, "session-1", last.Except)
	require.Equal(t, ColorPayload{User: "alice", Color: "#f00"}, last.Data)

	// every stored alice message repainted, bob untouched
	history, err := svc.History(ctx)
	require.NoError(t, err)
	for _, m := range history {
		if m.User == "alice" {
			require.Equal(t, "#f00", m.Color)
		} else {
			require.Equal(t, "#0f0", m.Color)
		}
	}
}

func TestRepaintUserColor_StoreFailureStillNotifies(t *testing.T) {
	bc := &recordingBroadcaster{}
	svc := NewService(failingRepo{}, bc)

	err := svc.RepaintUserColor(context.Background(), "s1", "alice", "#f00")
	require.Error(t, err)

	// the notification already went out; the repaint is eventually consistent
	events := bc.all()
	require.Len(t, events, 1)
	require.Equal(t, EventUserColorUpdated, events[0].Event)
}
