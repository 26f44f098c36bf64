package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// ErrEncodingFailed is returned when a blob handle's bytes cannot be read
var ErrEncodingFailed = errors.New("media encoding failed")

// BlobSource resolves and releases transient media handles
type BlobSource interface {
	Open(ref string) (io.ReadCloser, Blob, error)
	Revoke(ref string) error
}

// Encoder turns transient media handles into self-contained data URIs
type Encoder struct {
	blobs BlobSource
}

// NewEncoder creates an encoder reading handles from blobs
func NewEncoder(blobs BlobSource) *Encoder {
	return &Encoder{blobs: blobs}
}

// Encode returns a durable version of asset.
// Remote URLs and data URIs are returned unchanged. On failure the original asset is returned
// together with an error wrapping ErrEncodingFailed.
func (e *Encoder) Encode(ctx context.Context, asset models.MediaAsset) (models.MediaAsset, error) {
	return e.EncodeWithProgress(ctx, asset, nil)
}

// EncodeWithProgress is Encode with a 0-100 progress callback for blob handles
func (e *Encoder) EncodeWithProgress(ctx context.Context, asset models.MediaAsset, progress func(int)) (models.MediaAsset, error) {
	switch asset.Kind {
	case models.MediaNone, models.MediaRemoteURL, models.MediaDataURI:
		return asset, nil
	case models.MediaBlobHandle:
		return e.encodeBlob(ctx, asset, progress)
	case models.MediaUploadRef:
		return asset, fmt.Errorf("%w: unresolved upload reference %s", ErrEncodingFailed, asset.LocalRef)
	default:
		return asset, fmt.Errorf("%w: unknown media kind %q", ErrEncodingFailed, asset.Kind)
	}
}

// EncodeField encodes a single entity field value
func (e *Encoder) EncodeField(ctx context.Context, value string) (string, error) {
	out, err := e.Encode(ctx, models.ParseMediaAsset(value))
	if err != nil {
		return value, err
	}
	return out.Value(), nil
}

// EncodeCarrier encodes every media field of an entity in place.
// It stops at the first failure; fields already encoded keep their data URI.
func (e *Encoder) EncodeCarrier(ctx context.Context, carrier models.MediaCarrier) error {
	for _, f := range carrier.MediaFields() {
		encoded, err := e.EncodeField(ctx, *f.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		*f.Value = encoded
	}
	return nil
}

func (e *Encoder) encodeBlob(ctx context.Context, asset models.MediaAsset, progress func(int)) (models.MediaAsset, error) {
	ref := asset.LocalRef

	// The handle is released whether or not encoding succeeds
	defer func() {
		if err := e.blobs.Revoke(ref); err != nil {
			slog.Warn("Failed to release blob handle", "ref", ref, "err", err)
		}
	}()

	rc, blob, err := e.blobs.Open(ref)
	if err != nil {
		return asset, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	defer rc.Close()

	prefix := "data:" + blob.ContentType + ";base64,"
	var out strings.Builder
	out.Grow(len(prefix) + base64.StdEncoding.EncodedLen(int(blob.Size)))
	out.WriteString(prefix)

	enc := base64.NewEncoder(base64.StdEncoding, &out)
	src := &progressReader{ctx: ctx, r: rc, total: blob.Size, report: progress, last: -1}

	n, err := io.Copy(enc, src)
	if err != nil {
		return asset, fmt.Errorf("%w: failed to read %s: %w", ErrEncodingFailed, ref, err)
	}
	if err := enc.Close(); err != nil {
		return asset, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	if n != blob.Size {
		return asset, fmt.Errorf("%w: read %d of %d bytes from %s", ErrEncodingFailed, n, blob.Size, ref)
	}

	if progress != nil {
		progress(100)
	}
	slog.Debug("Encoded blob handle", "ref", ref, "size", HumanSize(n), "encoded_size", HumanSize(int64(out.Len())))

	return models.MediaAsset{Kind: models.MediaDataURI, Payload: out.String()}, nil
}

// ContextReader stops reading from r once ctx is done
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &progressReader{ctx: ctx, r: r, last: -1}
}

// progressReader reports read progress and stops when ctx is done
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(buf)
	p.read += int64(n)
	if p.report != nil && p.total > 0 {
		// 100 is reserved for a fully encoded payload
		pct := int(p.read * 99 / p.total)
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
