// Package cataloging applies admin edits to the catalog document: read from the cache, edit a copy,
// encode attached media, write the whole document back and invalidate the cache.
package cataloging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/cache"
	"github.com/lehigh-university-libraries/catalogsync/internal/catalog"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/lehigh-university-libraries/catalogsync/internal/persist"
)

var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrNotFound            = errors.New("not found")
	ErrInvalid             = errors.New("invalid entity")
)

// Reader is the read side of the catalog cache
type Reader interface {
	Read(ctx context.Context) (cache.Entry, error)
	Invalidate()
}

// MediaEncoder converts transient media fields into durable values in place
type MediaEncoder interface {
	EncodeCarrier(ctx context.Context, carrier models.MediaCarrier) error
}

// UserDirectory manages users through the remote store's entity endpoints
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Result reports a successful mutation
type Result struct {
	ID       string          `json:"id"`
	Affected int             `json:"affected,omitempty"` // entities touched besides ID, e.g. reassigned modules
	Outcome  persist.Outcome `json:"outcome"`
}

type state string

const (
	stateReading      state = "reading"
	stateEncoding     state = "encoding"
	stateWriting      state = "writing"
	stateInvalidating state = "invalidating"
	stateFailed       state = "failed"
	stateIdle         state = "idle"
)

// Service runs catalog mutations
type Service struct {
	cache   Reader
	policy  *persist.Policy
	encoder MediaEncoder
	users   UserDirectory
	now     func() time.Time
}

func NewService(c Reader, policy *persist.Policy, encoder MediaEncoder, users UserDirectory) *Service {
	return &Service{
		cache:   c,
		policy:  policy,
		encoder: encoder,
		users:   users,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// edit modifies doc in place; it returns the media-bearing entity it touched, if any, and the
// number of other entities it changed
type edit func(doc *models.CatalogDocument) (entity models.MediaCarrier, affected int, err error)

func (s *Service) mutate(ctx context.Context, op, id string, apply edit) (Result, error) {
	result := Result{ID: id}
	log := slog.With("op", op, "id", id)
	log.Debug("Catalog mutation", "state", stateReading)

	fail := func(err error) (Result, error) {
		log.Debug("Catalog mutation", "state", stateFailed, "err", err)
		log.Debug("Catalog mutation", "state", stateIdle)
		return result, err
	}

	entry, err := s.cache.Read(ctx)
	if err != nil {
		return fail(err)
	}
	doc := entry.Document

	entity, affected, err := apply(doc)
	if err != nil {
		return fail(err)
	}
	result.Affected = affected

	if entity != nil {
		claimed, err := claimUploads(doc, entity)
		if err != nil {
			return fail(err)
		}
		result.Affected += claimed

		log.Debug("Catalog mutation", "state", stateEncoding)
		if err := s.encoder.EncodeCarrier(ctx, entity); err != nil {
			return fail(err)
		}
		refreshMediaStatus(entity)
	}

	log.Debug("Catalog mutation", "state", stateWriting)
	result.Outcome, err = s.policy.AttemptWrite(ctx, doc, entity)
	if err != nil {
		return fail(err)
	}

	log.Debug("Catalog mutation", "state", stateInvalidating)
	s.cache.Invalidate()
	log.Debug("Catalog mutation", "state", stateIdle)

	if result.Outcome.Degraded {
		log.Warn("Stored without media", "stripped", result.Outcome.Stripped)
	}
	return result, nil
}

// refreshMediaStatus drops size annotations of fields that hold media again; an entity
// with no annotations left is back to full media
func refreshMediaStatus(entity models.MediaCarrier) {
	annotated := false
	for _, f := range entity.MediaFields() {
		if f.OriginalSize == nil || *f.OriginalSize == "" {
			continue
		}
		if *f.Value != "" {
			*f.OriginalSize = ""
			continue
		}
		annotated = true
	}
	if !annotated {
		entity.SetMediaStatus(models.MediaStatusFull)
	}
}

func insert[T any](collection map[string]*T, name, id string, v *T) error {
	if _, exists := collection[id]; exists {
		return fmt.Errorf("%w: %s %q already exists", ErrDuplicateIdentifier, name, id)
	}
	collection[id] = v
	return nil
}

func replace[T any](collection map[string]*T, name, id string, v *T) (*T, error) {
	old, ok := collection[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, name, id)
	}
	collection[id] = v
	return old, nil
}

func remove[T any](collection map[string]*T, name, id string) (*T, error) {
	old, ok := collection[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, name, id)
	}
	delete(collection, id)
	return old, nil
}

func without(ids []string, drop map[string]bool) ([]string, bool) {
	out := make([]string, 0, len(ids))
	changed := false
	for _, id := range ids {
		if drop[id] {
			changed = true
			continue
		}
		out = append(out, id)
	}
	return out, changed
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// CreateUser adds a user through the entity endpoint
func (s *Service) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" || user.Email == "" {
		return nil, invalid("user id and email are required")
	}
	if user.Status != "" && !user.Status.Valid() {
		return nil, invalid("unknown user status %q", user.Status)
	}

	entry, err := s.cache.Read(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := entry.Document.Users[user.ID]; exists {
		return nil, fmt.Errorf("%w: user %q already exists", ErrDuplicateIdentifier, user.ID)
	}

	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	created, err := s.users.CreateUser(ctx, &u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", persist.ErrPersistenceFailed, err)
	}
	s.cache.Invalidate()
	slog.Info("Created user", "id", created.ID)
	return created, nil
}

// DeleteUser removes a user through the entity endpoint
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return invalid("user id is required")
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		var statusErr *catalog.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: user %q", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %w", persist.ErrPersistenceFailed, err)
	}
	s.cache.Invalidate()
	slog.Info("Deleted user", "id", id)
	return nil
}
