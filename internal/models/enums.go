package models

// ActiveStatus marks whether a catalog entity is visible on the storefront
type ActiveStatus string

const (
	StatusActive   ActiveStatus = "active"
	StatusInactive ActiveStatus = "inactive"
)

// Valid reports whether s is a known status
func (s ActiveStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

// ContentType is the kind of lesson a module carries
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentVideo, ContentAudio:
		return true
	default:
		return false
	}
}

// MediaStatus records whether an entity's media survived persistence.
// The zero value means the media was stored in full.
type MediaStatus string

const (
	MediaStatusFull         MediaStatus = ""
	MediaStatusMetadataOnly MediaStatus = "metadata_only"
)

func (m MediaStatus) Valid() bool {
	switch m {
	case MediaStatusFull, MediaStatusMetadataOnly:
		return true
	default:
		return false
	}
}

// OrderStatus is the lifecycle state of a purchase
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderRefunded  OrderStatus = "refunded"
	OrderCancelled OrderStatus = "cancelled"
)

func (o OrderStatus) Valid() bool {
	switch o {
	case OrderPending, OrderCompleted, OrderRefunded, OrderCancelled:
		return true
	default:
		return false
	}
}

// UploadStatus is the ingestion state of an upload queue entry
type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

func (u UploadStatus) Valid() bool {
	switch u {
	case UploadProcessing, UploadCompleted, UploadFailed:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the entry will not change without user action
func (u UploadStatus) IsFinished() bool {
	switch u {
	case UploadCompleted, UploadFailed:
		return true
	case UploadProcessing:
		return false
	default:
		return false
	}
}
