package util

import (
	"bytes"
	"testing"
)

var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}
	pngHeader  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
)

func TestSniffMimeHTTP(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", pngHeader, "image/png"},
		{"unknown", []byte("hello"), "application/octet-stream"},
		{"empty", nil, "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := SniffMimeHTTP(tt.in); got != tt.want {
			t.Errorf("SniffMimeHTTP(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	t.Run("data url", func(t *testing.T) {
		b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64,aGVsbG8=")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !bytes.Equal(b, []byte("hello")) {
			t.Errorf("payload = %q, want hello", b)
		}
		if mime != "image/png" {
			t.Errorf("mime = %q, want image/png", mime)
		}
	})

	t.Run("bare base64", func(t *testing.T) {
		b, mime, err := DecodeBase64MaybeDataURL("aGVsbG8=")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if string(b) != "hello" || mime != "" {
			t.Errorf("got %q/%q", b, mime)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, _, err := DecodeBase64MaybeDataURL("!!! not base64 !!!"); err == nil {
			t.Error("error = nil, want decode failure")
		}
	})
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\ntext\n```", "text"},
		{"no fences", "no fences"},
		{"  \n```json\n{}\n```\n ", "{}"},
	}
	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashImageStable(t *testing.T) {
	a := HashImage([]byte("same"))
	b := HashImage([]byte("same"))
	c := HashImage([]byte("different"))
	if a != b {
		t.Error("same input hashed differently")
	}
	if a == c {
		t.Error("different inputs collided")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
