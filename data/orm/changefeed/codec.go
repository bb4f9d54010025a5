package changefeed

import (
	"encoding/json"
	"fmt"
)

// Encode 将事件编码为 JSON。
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode 从 JSON 解码事件。
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("changefeed: decode event: %w", err)
	}
	return e, nil
}
