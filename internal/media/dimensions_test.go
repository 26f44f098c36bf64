package media

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestImageDimensions(t *testing.T) {
	store := NewMemBlobStore()
	defer store.Close()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}

	tests := []struct {
		name       string
		filename   string
		data       []byte
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{name: "png", filename: "cover.png", data: buf.Bytes(), wantWidth: 3, wantHeight: 2},
		{name: "not an image", filename: "notes.txt", data: []byte("plain text")},
		{name: "corrupt image", filename: "broken.png", data: []byte("\x89PNG\r\n\x1a\nnope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := store.Put(tt.filename, "", bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			w, h, err := store.ImageDimensions(blob.Ref)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error for a corrupt image")
				}
				return
			}
			if err != nil {
				t.Fatalf("ImageDimensions failed: %v", err)
			}
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantWidth, tt.wantHeight, w, h)
			}
		})
	}

	if _, _, err := store.ImageDimensions("blob:missing"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}
