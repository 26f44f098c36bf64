package models

import "time"

// Module represents a single video or audio lesson
type Module struct {
	ID                    string       `json:"id"`
	Title                 string       `json:"title"`
	Description           string       `json:"description,omitempty"`
	Category              string       `json:"category,omitempty"` // category ID
	ContentType           ContentType  `json:"contentType,omitempty"`
	VideoURL              string       `json:"videoUrl,omitempty"`
	AudioURL              string       `json:"audioUrl,omitempty"`
	Thumbnail             string       `json:"thumbnail,omitempty"`
	Duration              string       `json:"duration,omitempty"`
	AgeGroup              string       `json:"ageGroup,omitempty"`
	Tags                  []string     `json:"tags,omitempty"`
	Price                 float64      `json:"price"`
	Status                ActiveStatus `json:"status,omitempty"`
	MediaStatus           MediaStatus  `json:"mediaStatus,omitempty"`
	OriginalVideoSize     string       `json:"originalVideoSize,omitempty"`
	OriginalAudioSize     string       `json:"originalAudioSize,omitempty"`
	OriginalThumbnailSize string       `json:"originalThumbnailSize,omitempty"`
	CreatedAt             time.Time    `json:"createdAt"`
	UpdatedAt             time.Time    `json:"updatedAt"`
}

func (m *Module) MediaFields() []MediaField {
	return []MediaField{
		{Name: "videoUrl", Value: &m.VideoURL, OriginalSize: &m.OriginalVideoSize},
		{Name: "audioUrl", Value: &m.AudioURL, OriginalSize: &m.OriginalAudioSize},
		{Name: "thumbnail", Value: &m.Thumbnail, OriginalSize: &m.OriginalThumbnailSize},
	}
}

func (m *Module) SetMediaStatus(s MediaStatus) { m.MediaStatus = s }

// Package groups modules into a purchasable unit
type Package struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Description            string       `json:"description,omitempty"`
	Price                  float64      `json:"price"`
	ModuleIDs              []string     `json:"moduleIds,omitempty"`
	CoverImage             string       `json:"coverImage,omitempty"`
	Status                 ActiveStatus `json:"status,omitempty"`
	MediaStatus            MediaStatus  `json:"mediaStatus,omitempty"`
	OriginalCoverImageSize string       `json:"originalCoverImageSize,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
	UpdatedAt              time.Time    `json:"updatedAt"`
}

func (p *Package) MediaFields() []MediaField {
	return []MediaField{
		{Name: "coverImage", Value: &p.CoverImage, OriginalSize: &p.OriginalCoverImageSize},
	}
}

func (p *Package) SetMediaStatus(s MediaStatus) { p.MediaStatus = s }

// Category is a browsing bucket for modules
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      ActiveStatus `json:"status,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Bundle is a discounted set of packages and modules (contentBundles collection)
type Bundle struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Description            string       `json:"description,omitempty"`
	PackageIDs             []string     `json:"packageIds,omitempty"`
	ModuleIDs              []string     `json:"moduleIds,omitempty"`
	Price                  float64      `json:"price"`
	Discount               float64      `json:"discount,omitempty"` // percent
	CoverImage             string       `json:"coverImage,omitempty"`
	Status                 ActiveStatus `json:"status,omitempty"`
	MediaStatus            MediaStatus  `json:"mediaStatus,omitempty"`
	OriginalCoverImageSize string       `json:"originalCoverImageSize,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
	UpdatedAt              time.Time    `json:"updatedAt"`
}

func (b *Bundle) MediaFields() []MediaField {
	return []MediaField{
		{Name: "coverImage", Value: &b.CoverImage, OriginalSize: &b.OriginalCoverImageSize},
	}
}

func (b *Bundle) SetMediaStatus(s MediaStatus) { b.MediaStatus = s }

// Purchase is an order placed by a user (purchases collection)
type Purchase struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	PackageID   string      `json:"packageId,omitempty"`
	BundleID    string      `json:"bundleId,omitempty"`
	Amount      float64     `json:"amount"`
	Status      OrderStatus `json:"status"`
	PurchasedAt time.Time   `json:"purchasedAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// User is a storefront or admin account
type User struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      string       `json:"role,omitempty"`
	Status    ActiveStatus `json:"status,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// UploadQueueEntry tracks an in-flight or completed media ingestion
type UploadQueueEntry struct {
	ID               string       `json:"id"`
	Filename         string       `json:"filename"`
	ContentType      string       `json:"contentType,omitempty"`
	Size             int64        `json:"size"`
	Width            int          `json:"width,omitempty"`
	Height           int          `json:"height,omitempty"`
	Status           UploadStatus `json:"status"`
	Progress         int          `json:"progress"` // 0-100
	AssetRef         string       `json:"assetRef,omitempty"`
	Error            string       `json:"error,omitempty"`
	MediaStatus      MediaStatus  `json:"mediaStatus,omitempty"`
	OriginalFileSize string       `json:"originalFileSize,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

func (u *UploadQueueEntry) MediaFields() []MediaField {
	return []MediaField{
		{Name: "assetRef", Value: &u.AssetRef, OriginalSize: &u.OriginalFileSize},
	}
}

func (u *UploadQueueEntry) SetMediaStatus(s MediaStatus) { u.MediaStatus = s }
