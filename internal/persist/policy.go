// Package persist writes catalog documents to the remote store, degrading oversized media when the
// store refuses a request because of its size.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/catalog"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// DefaultThreshold is the field length below which media survives a degraded write
const DefaultThreshold = 8 * 1024

var (
	// ErrPersistenceFailed means the remote store rejected the write, degraded or not
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrTransientMedia means the document still references process-local blob handles
	ErrTransientMedia = errors.New("document contains transient media references")
)

// Writer replaces the whole remote document
type Writer interface {
	ReplaceDocument(ctx context.Context, doc *models.CatalogDocument) error
}

// Outcome describes what a write took
type Outcome struct {
	Attempts int      `json:"attempts"`
	Degraded bool     `json:"degraded"`
	Stripped []string `json:"stripped,omitempty"` // media field names cleared on the degraded attempt
}

// Policy performs at most two write attempts: the document as given, then once more with the
// entity's oversized media stripped if the first attempt was refused as too large.
type Policy struct {
	writer    Writer
	Threshold int
}

// NewPolicy creates a policy with the default threshold
func NewPolicy(w Writer) *Policy {
	return &Policy{writer: w, Threshold: DefaultThreshold}
}

// AttemptWrite writes doc. entity must point into doc; it is degraded in place when needed.
// A nil entity disables the degrade path.
func (p *Policy) AttemptWrite(ctx context.Context, doc *models.CatalogDocument, entity models.MediaCarrier) (Outcome, error) {
	var out Outcome

	if refs := doc.TransientRefs(); len(refs) > 0 {
		return out, fmt.Errorf("%w: %s", ErrTransientMedia, strings.Join(refs, ", "))
	}

	out.Attempts++
	err := p.writer.ReplaceDocument(ctx, doc)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, catalog.ErrPayloadTooLarge) || entity == nil {
		return out, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	stripped := p.Degrade(entity)
	if len(stripped) == 0 {
		return out, fmt.Errorf("%w: nothing to strip: %w", ErrPersistenceFailed, err)
	}
	out.Degraded = true
	out.Stripped = stripped
	slog.Warn("Remote store refused document size, retrying without media", "fields", stripped)

	out.Attempts++
	if err := p.writer.ReplaceDocument(ctx, doc); err != nil {
		return out, fmt.Errorf("%w: degraded write: %w", ErrPersistenceFailed, err)
	}
	return out, nil
}

// Degrade clears media fields longer than the threshold, records their original size and marks the
// entity metadata-only. It returns the names of the cleared fields.
func (p *Policy) Degrade(entity models.MediaCarrier) []string {
	var stripped []string
	for _, f := range entity.MediaFields() {
		if len(*f.Value) <= p.Threshold {
			continue
		}
		if f.OriginalSize != nil {
			*f.OriginalSize = media.HumanSize(media.DecodedSize(*f.Value))
		}
		*f.Value = ""
		stripped = append(stripped, f.Name)
	}
	if len(stripped) > 0 {
		entity.SetMediaStatus(models.MediaStatusMetadataOnly)
	}
	return stripped
}
