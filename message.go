package main

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionSendMessage = "send_message"
	ActionDisconnect  = "disconnect"

	// shown in place of a missing timestamp
	noTimestamp = "N/A"
)

// MessagePayload is a chat message pushed by the relay to a connected user.
type MessagePayload struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	// Timestamp is optional, the relay may omit it.
	Timestamp *string `json:"timestamp,omitempty"`
}

// String renders the payload the way the terminal shows it.
func (m *MessagePayload) String() string {
	ts := noTimestamp
	if m.Timestamp != nil {
		ts = *m.Timestamp
	}
	return fmt.Sprintf("Received message from %s: %s [timestamp: %s]", m.Sender, m.Content, ts)
}

// Action is used to peek at the discriminant of an incoming envelope.
type Action struct {
	ActionType string `json:"action_type"`
}

// SendMessage is the envelope for an outgoing chat message.
type SendMessage struct {
	ActionType string `json:"action_type"`
	MessageID  string `json:"message_id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Content    string `json:"content"`
}

// Disconnect is the envelope sent when the user leaves.
type Disconnect struct {
	ActionType string `json:"action_type"`
	User       string `json:"user"`
}

func NewSendMessage(id, sender, recipient, content string) SendMessage {
	return SendMessage{
		ActionType: ActionSendMessage,
		MessageID:  id,
		Sender:     sender,
		Recipient:  recipient,
		Content:    content,
	}
}

func NewDisconnect(user string) Disconnect {
	return Disconnect{ActionType: ActionDisconnect, User: user}
}

// decodePayload parses a text frame into a message payload. Every field
// except the timestamp has to be present.
func decodePayload(data []byte) (*MessagePayload, error) {
	var raw struct {
		MessageID *string `json:"message_id"`
		Sender    *string `json:"sender"`
		Recipient *string `json:"recipient"`
		Content   *string `json:"content"`
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.MessageID == nil || raw.Sender == nil || raw.Recipient == nil || raw.Content == nil {
		return nil, errIncompletePayload
	}
	return &MessagePayload{
		MessageID: *raw.MessageID,
		Sender:    *raw.Sender,
		Recipient: *raw.Recipient,
		Content:   *raw.Content,
		Timestamp: raw.Timestamp,
	}, nil
}

// payloadFrom turns an accepted send_message envelope into what the recipient sees.
func payloadFrom(m SendMessage, at time.Time) MessagePayload {
	ts := at.UTC().Format(time.RFC3339)
	return MessagePayload{
		MessageID: m.MessageID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Content:   m.Content,
		Timestamp: &ts,
	}
}
