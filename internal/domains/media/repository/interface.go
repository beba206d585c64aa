package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/media/model"
)

type MediaRepository interface {
	// CreateMedia inserts the source record and its pending processing
	// record together.
	CreateMedia(ctx context.Context, media *model.ProductMedia, processed *model.ProcessedMedia) error
	GetMediaByID(ctx context.Context, id uuid.UUID) (*model.ProductMedia, error)
	GetProcessedByMediaID(ctx context.Context, mediaID uuid.UUID) (*model.ProcessedMedia, error)
	// SetProcessing flips the record to processing and bumps the attempt
	// counter; returns the new attempt count.
	SetProcessing(ctx context.Context, mediaID uuid.UUID) (int, error)
	MarkCompleted(ctx context.Context, mediaID uuid.UUID, processedURL, thumbnailURL string, fileSize int64) error
	MarkFailed(ctx context.Context, mediaID uuid.UUID) error
}
