package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rankboard/rankboard/internal/board"
	boardsvc "github.com/rankboard/rankboard/internal/board/service"
	"github.com/rankboard/rankboard/internal/chat"
	chatsvc "github.com/rankboard/rankboard/internal/chat/service"
)

// Inbound event names.
const (
	EventRequestInitialData = "requestInitialData"
	EventUpdateLists        = "updateLists"
	EventUpdateHeaders      = "updateHeaders"
	EventChatMessage        = "chatMessage"
	EventEditMessage        = "editMessage"
	EventDeleteMessage      = "deleteMessage"
	EventUserColorChange    = "userColorChange"
	EventClearChat          = "clearChat"

	// EventInitialData is the snapshot reply sent to the requesting session only.
	EventInitialData = "initialData"
)

// InitialData is the combined snapshot a session receives on request.
type InitialData struct {
	Messages []chat.Message     `json:"messages"`
	Lists    board.RankingLists `json:"lists"`
	Headers  board.Headers      `json:"headers"`
}

// EventHandlers binds the board and transcript services to dispatcher events.
type EventHandlers struct {
	board *boardsvc.Service
	chat  *chatsvc.Service
}

func NewEventHandlers(b *boardsvc.Service, c *chatsvc.Service) *EventHandlers {
	return &EventHandlers{board: b, chat: c}
}

// Register wires every inbound event to its handler.
func (e *EventHandlers) Register(d *Dispatcher) {
	d.Handle(EventRequestInitialData, e.requestInitialData)
	d.Handle(EventUpdateLists, e.updateLists)
	d.Handle(EventUpdateHeaders, e.updateHeaders)
	d.Handle(EventChatMessage, e.chatMessage)
	d.Handle(EventEditMessage, e.editMessage)
	d.Handle(EventDeleteMessage, e.deleteMessage)
	d.Handle(EventUserColorChange, e.userColorChange)
	d.Handle(EventClearChat, e.clearChat)
}

// requestInitialData assembles the full snapshot and sends it to the
// requesting session only. Any store read error aborts the whole snapshot:
// nothing is sent and the error is logged by the dispatcher.
func (e *EventHandlers) requestInitialData(ctx context.Context, sess *Client, _ json.RawMessage) error {
	messages, err := e.chat.History(ctx)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	lists, err := e.board.Lists(ctx)
	if err != nil {
		return fmt.Errorf("load ranking lists: %w", err)
	}
	headers, err := e.board.Headers(ctx)
	if err != nil {
		return fmt.Errorf("load headers: %w", err)
	}
	sess.Send(EventInitialData, InitialData{Messages: messages, Lists: lists, Headers: headers})
	return nil
}

func (e *EventHandlers) updateLists(ctx context.Context, _ *Client, data json.RawMessage) error {
	var lists board.RankingLists
	if err := json.Unmarshal(data, &lists); err != nil {
		return fmt.Errorf("malformed updateLists payload: %w", err)
	}
	return e.board.UpdateLists(ctx, lists)
}

func (e *EventHandlers) updateHeaders(ctx context.Context, _ *Client, data json.RawMessage) error {
	var h board.Headers
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("malformed updateHeaders payload: %w", err)
	}
	if h.HeaderA == "" || h.HeaderB == "" {
		return fmt.Errorf("updateHeaders payload missing header labels")
	}
	return e.board.UpdateHeaders(ctx, h)
}

func (e *EventHandlers) chatMessage(ctx context.Context, _ *Client, data json.RawMessage) error {
	// any client-supplied id is ignored; the service assigns the canonical one
	var req struct {
		User  string `json:"user"`
		Text  string `json:"text"`
		Color string `json:"color"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed chatMessage payload: %w", err)
	}
	if req.User == "" || req.Text == "" {
		return fmt.Errorf("chatMessage payload missing user or text")
	}
	_, err := e.chat.Append(ctx, req.User, req.Text, req.Color)
	return err
}

func (e *EventHandlers) editMessage(ctx context.Context, _ *Client, data json.RawMessage) error {
	var req struct {
		ID   chat.MessageID `json:"id"`
		Text string         `json:"text"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed editMessage payload: %w", err)
	}
	if req.ID == 0 {
		return fmt.Errorf("editMessage payload missing id")
	}
	return e.chat.Edit(ctx, req.ID, req.Text)
}

func (e *EventHandlers) deleteMessage(ctx context.Context, _ *Client, data json.RawMessage) error {
	var req struct {
		ID chat.MessageID `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed deleteMessage payload: %w", err)
	}
	if req.ID == 0 {
		return fmt.Errorf("deleteMessage payload missing id")
	}
	return e.chat.Delete(ctx, req.ID)
}

func (e *EventHandlers) userColorChange(ctx context.Context, sess *Client, data json.RawMessage) error {
	var req struct {
		User  string `json:"user"`
		Color string `json:"color"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("malformed userColorChange payload: %w", err)
	}
	if req.User == "" || req.Color == "" {
		return fmt.Errorf("userColorChange payload missing user or color")
	}
	return e.chat.RepaintUserColor(ctx, sess.ID, req.User, req.Color)
}

func (e *EventHandlers) clearChat(ctx context.Context, _ *Client, _ json.RawMessage) error {
	return e.chat.Clear(ctx)
}
