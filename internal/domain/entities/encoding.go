package entities

import (
	"encoding/base64"
	"fmt"
)

// EncodeContent converts logical text into the transport encoding the blob
// API expects. The text is encoded from its UTF-8 byte sequence, never from
// 16-bit code units, so multi-byte characters survive the round trip.
func EncodeContent(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeContent is the exact inverse of EncodeContent.
func DecodeContent(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %w", err)
	}
	return string(raw), nil
}
