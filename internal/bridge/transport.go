package bridge

import (
	"encoding/json"
	"time"
)

// MessageType keys the bridge's publish/subscribe dispatch.
type MessageType string

const (
	TypeMeasurement  MessageType = "measurement"
	TypeDetection    MessageType = "detection"
	TypeSession      MessageType = "session"
	TypeError        MessageType = "error"
	TypeCapabilities MessageType = "capabilities"
	TypeARReady      MessageType = "ar_ready"
)

// Message is the envelope exchanged with the host native AR module, in both
// directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Transport is the injectable channel to the host container. A nil
// Transport means the process is not hosted and AR is permanently
// unavailable. Implementations must deliver subscribed messages from a
// single goroutine at a time.
type Transport interface {
	// Send delivers a command message to the host. Fire and forget: the
	// host does not acknowledge.
	Send(msg Message) error

	// Subscribe registers a handler for every message arriving from the
	// host and returns a cancel func that unregisters it.
	Subscribe(handler func(Message)) (cancel func())
}
