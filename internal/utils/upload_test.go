package utils

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeImage(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := EncodeImage(raw)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("encoded image did not round-trip")
	}
}

func TestTruncatePreview(t *testing.T) {
	short := "Calories: 250 kcal"
	if got := TruncatePreview(short, 100); got != short {
		t.Errorf("short text should be unchanged, got %q", got)
	}

	long := strings.Repeat("a", 150)
	got := TruncatePreview(long, 100)
	if len(got) != 103 {
		t.Errorf("truncated length = %d, expected 103", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated text should end with ellipsis, got %q", got[90:])
	}

	if got := TruncatePreview(long, 0); got != long {
		t.Error("non-positive max length should disable truncation")
	}
}
