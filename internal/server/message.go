package server

import "encoding/json"

// MessageType identifies a client request or a one-off server frame.
// Game state updates are not wrapped in Message; they are rendered
// directly by the game engine as "state" frames.
type MessageType string

const (
	// Client → server
	MessageTypeRename MessageType = "rename"
	MessageTypePlay   MessageType = "play"
	MessageTypeJudge  MessageType = "judge"

	// Server → client
	MessageTypeWelcome MessageType = "welcome"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope for client requests and the welcome frame.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps a payload in the message envelope.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: messageType, Data: dataBytes}, nil
}

// Client → server payloads.

type RenameData struct {
	Name string `json:"name"`
}

type PlayData struct {
	Card string `json:"card"`
}

type JudgeData struct {
	Card string `json:"card"`
}

// WelcomeData tells a client its own player ID so it can find itself in
// subsequent state frames.
type WelcomeData struct {
	ID string `json:"id"`
}

// ErrorData is sent before closing a connection the server cannot seat.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
