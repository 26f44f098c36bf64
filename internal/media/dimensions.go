package media

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// ImageDimensions reads the width and height of a stored image without decoding it.
// Non-image blobs report zero dimensions.
func (b *BlobStore) ImageDimensions(ref string) (int, int, error) {
	rc, blob, err := b.Open(ref)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	if !strings.HasPrefix(blob.ContentType, "image/") {
		return 0, 0, nil
	}

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
