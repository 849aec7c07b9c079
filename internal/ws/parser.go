package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse parses a feed payload. The feed returns messages either as JSON
// arrays or single objects.
func Parse(data []byte) ([]Message, error) {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var messages []Message
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("parsing message array: %w (data: %s)", err, truncate(data, 100))
		}
		return messages, nil
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing message: %w (data: %s)", err, truncate(data, 100))
	}
	return []Message{msg}, nil
}

// truncate truncates a byte slice to a maximum length for error messages.
func truncate(data []byte, maxLen int) string {
	if len(data) <= maxLen {
		return string(data)
	}
	return string(data[:maxLen]) + "..."
}
