package media

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURI encodes data as a base64 data URI
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI into its media type and bytes
func ParseDataURI(uri string) (string, []byte, error) {
	header, payload, ok := splitDataURI(uri)
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// DecodedSize returns the number of bytes a base64 data URI carries without decoding it.
// For anything else it returns the length of the value.
func DecodedSize(value string) int64 {
	header, payload, ok := splitDataURI(value)
	if !ok || !strings.HasSuffix(header, ";base64") {
		return int64(len(value))
	}
	n := int64(len(payload)) / 4 * 3
	switch {
	case strings.HasSuffix(payload, "=="):
		n -= 2
	case strings.HasSuffix(payload, "="):
		n--
	}
	return n
}

// HumanSize formats a byte count for operators, e.g. "50.0MB"
func HumanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1fGB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1fKB", float64(n)/kb)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func splitDataURI(value string) (header, payload string, ok bool) {
	if len(value) < 5 || !strings.EqualFold(value[:5], "data:") {
		return "", "", false
	}
	header, payload, ok = strings.Cut(value[5:], ",")
	return header, payload, ok
}
