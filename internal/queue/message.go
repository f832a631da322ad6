package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is the current export job payload version.
const MessageVersion = 1

// Message is the payload sent to export workers.
type Message struct {
	ExportID   string `json:"exportId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(exportID, requestID string, now time.Time) Message {
	return Message{
		ExportID:   exportID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. Versions newer than
// MessageVersion are rejected so old workers never guess at new fields.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
