package models

import "strings"

// MediaKind tags the durability state of a media reference
type MediaKind string

const (
	MediaNone       MediaKind = "none"
	MediaRemoteURL  MediaKind = "remote-url"
	MediaDataURI    MediaKind = "data-uri"
	MediaBlobHandle MediaKind = "blob-handle"
	MediaUploadRef  MediaKind = "upload-ref"
)

const (
	// BlobScheme prefixes transient, process-local media handles
	BlobScheme = "blob:"
	// UploadScheme points a media field at a finished upload queue entry, as upload:<id>
	UploadScheme = "upload:"
)

// MediaAsset is a reference to visual or audio content attached to a catalog entity.
// Only remote-url and data-uri assets may be committed to the remote store.
type MediaAsset struct {
	Kind     MediaKind
	Payload  string // URL or data URI, depending on Kind
	LocalRef string // blob handle or upload reference
}

// ParseMediaAsset classifies a stored media field value
func ParseMediaAsset(value string) MediaAsset {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	switch {
	case v == "":
		return MediaAsset{Kind: MediaNone}
	case strings.HasPrefix(lower, BlobScheme):
		return MediaAsset{Kind: MediaBlobHandle, LocalRef: v}
	case strings.HasPrefix(lower, UploadScheme):
		return MediaAsset{Kind: MediaUploadRef, LocalRef: v}
	case strings.HasPrefix(lower, "data:"):
		return MediaAsset{Kind: MediaDataURI, Payload: v}
	default:
		// Anything else is treated as an external link (http, https, relative CDN paths)
		return MediaAsset{Kind: MediaRemoteURL, Payload: v}
	}
}

// Value renders the asset back into an entity field
func (a MediaAsset) Value() string {
	switch a.Kind {
	case MediaBlobHandle, MediaUploadRef:
		return a.LocalRef
	case MediaRemoteURL, MediaDataURI:
		return a.Payload
	case MediaNone:
		return ""
	default:
		return ""
	}
}

// IsDurable reports whether the asset may be persisted as-is
func (a MediaAsset) IsDurable() bool {
	switch a.Kind {
	case MediaNone, MediaRemoteURL, MediaDataURI:
		return true
	case MediaBlobHandle, MediaUploadRef:
		return false
	default:
		return false
	}
}

// UploadID returns the queue entry an upload reference points at
func (a MediaAsset) UploadID() string {
	if a.Kind != MediaUploadRef {
		return ""
	}
	return strings.TrimSpace(a.LocalRef[len(UploadScheme):])
}

// MediaField exposes one media-bearing field of an entity to the encoder and persistence policy
type MediaField struct {
	Name         string
	Value        *string
	OriginalSize *string // annotation filled when the field is stripped; nil if the entity has none
}

// MediaCarrier is implemented by entities that hold media fields
type MediaCarrier interface {
	MediaFields() []MediaField
	SetMediaStatus(MediaStatus)
}
