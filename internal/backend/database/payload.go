package database

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const base64Marker = "base64,"

// DecodeImagePayload decodes a base64 image. A data URI header such as
// "data:image/png;base64," is stripped first.
func DecodeImagePayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, base64Marker); idx >= 0 {
		payload = payload[idx+len(base64Marker):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image payload: %w", err)
	}
	return data, nil
}
