package events

import (
	"encoding/json"
	"fmt"
)

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// DecodeHeader extracts the header shared by every event payload.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("decoding event: %w", err)
	}
	if h.Type == "" {
		return Header{}, fmt.Errorf("decoding event: missing type")
	}
	return h, nil
}
