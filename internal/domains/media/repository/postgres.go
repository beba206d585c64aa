package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-backend/internal/domains/media/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresMediaRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMediaRepository(pool *pgxpool.Pool) MediaRepository {
	return &postgresMediaRepository{
		pool: pool,
	}
}

func (r *postgresMediaRepository) CreateMedia(ctx context.Context, media *model.ProductMedia, processed *model.ProcessedMedia) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO product_media (id, product_id, type, source_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		media.ID, media.ProductID, media.Type, media.SourceURL,
	).Scan(&media.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO processed_media (id, media_id, status, file_size, attempts)
		 VALUES ($1, $2, $3, 0, 0)
		 RETURNING created_at, updated_at`,
		processed.ID, processed.MediaID, processed.Status,
	).Scan(&processed.CreatedAt, &processed.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create processing record: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *postgresMediaRepository) GetMediaByID(ctx context.Context, id uuid.UUID) (*model.ProductMedia, error) {
	var m model.ProductMedia
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, type, source_url, created_at FROM product_media WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.ProductID, &m.Type, &m.SourceURL, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return &m, nil
}

func (r *postgresMediaRepository) GetProcessedByMediaID(ctx context.Context, mediaID uuid.UUID) (*model.ProcessedMedia, error) {
	var p model.ProcessedMedia
	err := r.pool.QueryRow(ctx,
		`SELECT id, media_id, processed_url, thumbnail_url, status, file_size, attempts, created_at, updated_at
		 FROM processed_media WHERE media_id = $1`,
		mediaID,
	).Scan(&p.ID, &p.MediaID, &p.ProcessedURL, &p.ThumbnailURL, &p.Status, &p.FileSize, &p.Attempts, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProcessedNotFound
		}
		return nil, fmt.Errorf("failed to get processing record: %w", err)
	}
	return &p, nil
}

func (r *postgresMediaRepository) SetProcessing(ctx context.Context, mediaID uuid.UUID) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE processed_media
		 SET status = $2, attempts = attempts + 1, updated_at = NOW()
		 WHERE media_id = $1
		 RETURNING attempts`,
		mediaID, model.ProcessingStatusProcessing,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrProcessedNotFound
		}
		return 0, fmt.Errorf("failed to set processing: %w", err)
	}
	return attempts, nil
}

func (r *postgresMediaRepository) MarkCompleted(ctx context.Context, mediaID uuid.UUID, processedURL, thumbnailURL string, fileSize int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE processed_media
		 SET status = $2, processed_url = $3, thumbnail_url = $4, file_size = $5, updated_at = NOW()
		 WHERE media_id = $1`,
		mediaID, model.ProcessingStatusCompleted, processedURL, thumbnailURL, fileSize,
	)
	if err != nil {
		return fmt.Errorf("failed to mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProcessedNotFound
	}
	return nil
}

func (r *postgresMediaRepository) MarkFailed(ctx context.Context, mediaID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE processed_media SET status = $2, updated_at = NOW() WHERE media_id = $1`,
		mediaID, model.ProcessingStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProcessedNotFound
	}
	return nil
}
