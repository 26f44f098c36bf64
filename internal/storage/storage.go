package storage

import (
	"context"
	"errors"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// ErrNoMirror is returned by Load when nothing has been mirrored yet
var ErrNoMirror = errors.New("no mirrored catalog")

// Namespace is the key space owned by the catalog mirror
const Namespace = "catalogsync"

// mirrorVersion is bumped when the persisted envelope changes shape
const mirrorVersion = 1

// Mirror persists the last successfully fetched catalog document locally
type Mirror interface {
	// Load returns the mirrored document and when it was saved
	Load(ctx context.Context) (*models.CatalogDocument, time.Time, error)
	// Save replaces the mirrored document
	Save(ctx context.Context, doc *models.CatalogDocument) error
	// Clear erases everything in the mirror namespace
	Clear(ctx context.Context) error
}

// envelope is the persisted form of a mirrored document
type envelope struct {
	Version  int                     `json:"version"`
	SavedAt  time.Time               `json:"savedAt"`
	Document *models.CatalogDocument `json:"document"`
}
