package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// MEDIA TYPE CONSTANTS
// =====================================================
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// =====================================================
// PROCESSING STATUS CONSTANTS
// =====================================================
const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)

// MaxProcessingAttempts bounds the retry loop; exhausting it leaves the
// record failed for good.
const MaxProcessingAttempts = 3

// =====================================================
// ENTITY: ProductMedia
// =====================================================
type ProductMedia struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Type      string    `json:"type"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}

// =====================================================
// ENTITY: ProcessedMedia
// =====================================================
// One-to-one with ProductMedia. Video media stays pending forever; only
// images go through the processing pipeline.
type ProcessedMedia struct {
	ID           uuid.UUID `json:"id"`
	MediaID      uuid.UUID `json:"media_id"`
	ProcessedURL *string   `json:"processed_url,omitempty"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Status       string    `json:"status"`
	FileSize     int64     `json:"file_size"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
