package utils

import "encoding/base64"

// EncodeImage encodes raw image bytes as standard base64 for providers that
// take data URLs or base64 blocks instead of raw bytes.
func EncodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// TruncatePreview shortens analysis text for history listings. The full text
// stays in the record; previews are purely presentational.
func TruncatePreview(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
