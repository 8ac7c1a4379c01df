package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageID is the addressing key for transcript entries. It is numeric on
// the wire but some clients transport it as a string, so it unmarshals from
// either form and is normalized to int64 before every lookup.
type MessageID int64

func (id *MessageID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("message id %q: %w", s, err)
	}
	*id = MessageID(n)
	return nil
}

// Message is one transcript entry. The id is assigned server-side at append
// time and the timestamp is always stamped by the server, never the client.
type Message struct {
	ID        MessageID `json:"id" bson:"id"`
	User      string    `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
	Color     string    `json:"color,omitempty" bson:"color,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
