package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/media/model"
	"marketplace-backend/internal/domains/media/repository"
	productRepo "marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/utils"
	"marketplace-backend/pkg/logger"
)

const fetchTimeout = 15 * time.Second

// MediaService registers uploaded media and runs the post-processing
// pipeline: fetch the source, render display + thumbnail, upload both.
type MediaService interface {
	RegisterMedia(ctx context.Context, actorID uuid.UUID, role string, req model.RegisterMediaRequest) (*model.MediaStatusResponse, error)
	GetStatus(ctx context.Context, mediaID uuid.UUID) (*model.MediaStatusResponse, error)
	Process(ctx context.Context, mediaID uuid.UUID) error
}

// =====================================================
// MEDIA SERVICE IMPLEMENTATION
// =====================================================
type mediaService struct {
	repo        repository.MediaRepository
	productRepo productRepo.ProductRepository
	storage     storage.ObjectStorage
	processor   *storage.ImageProcessor
	enqueuer    shared.Enqueuer
	client      *http.Client
}

func NewMediaService(
	repo repository.MediaRepository,
	products productRepo.ProductRepository,
	objectStorage storage.ObjectStorage,
	processor *storage.ImageProcessor,
	enqueuer shared.Enqueuer,
) MediaService {
	return &mediaService{
		repo:        repo,
		productRepo: products,
		storage:     objectStorage,
		processor:   processor,
		enqueuer:    enqueuer,
		client:      &http.Client{Timeout: fetchTimeout},
	}
}

// =====================================================
// REGISTER
// =====================================================

func (s *mediaService) RegisterMedia(ctx context.Context, actorID uuid.UUID, role string, req model.RegisterMediaRequest) (*model.MediaStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Only the product's seller (or an admin) may attach media to it.
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, productRepo.ErrProductNotFound) {
			return nil, model.ErrProductNotFound
		}
		return nil, err
	}
	isAdmin := role == "admin" || role == "superadmin"
	if !isAdmin && product.SellerID != actorID {
		return nil, model.ErrNotProductOwner
	}

	media := &model.ProductMedia{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		Type:      req.Type,
		SourceURL: req.SourceURL,
	}
	processed := &model.ProcessedMedia{
		ID:      uuid.New(),
		MediaID: media.ID,
		Status:  model.ProcessingStatusPending,
	}

	if err := s.repo.CreateMedia(ctx, media, processed); err != nil {
		return nil, err
	}

	// Only images go through the pipeline; video stays pending by design.
	if media.Type == model.MediaTypeImage {
		s.enqueueProcessing(media.ID)
	}

	return &model.MediaStatusResponse{Media: media, Processed: processed}, nil
}

func (s *mediaService) enqueueProcessing(mediaID uuid.UUID) {
	task, err := utils.MarshalTask(shared.TypeProcessProductMedia, shared.ProcessMediaPayload{MediaID: mediaID})
	if err != nil {
		logger.Error("Failed to marshal media task", err)
		return
	}
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue(shared.QueueMedia),
		asynq.MaxRetry(model.MaxProcessingAttempts-1),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to enqueue media task", err)
	}
}

// =====================================================
// STATUS
// =====================================================

func (s *mediaService) GetStatus(ctx context.Context, mediaID uuid.UUID) (*model.MediaStatusResponse, error) {
	media, err := s.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	processed, err := s.repo.GetProcessedByMediaID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return &model.MediaStatusResponse{Media: media, Processed: processed}, nil
}

// =====================================================
// PROCESS
// =====================================================
// Runs on the worker. Any failure marks the record failed and returns the
// error so the task retries; after the attempt cap the record stays
// failed and no further retry is scheduled.

func (s *mediaService) Process(ctx context.Context, mediaID uuid.UUID) error {
	media, err := s.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return err
	}
	if media.Type != model.MediaTypeImage {
		logger.Info("Skipping non-image media", map[string]interface{}{
			"media_id": mediaID.String(),
			"type":     media.Type,
		})
		return nil
	}

	if _, err := s.repo.SetProcessing(ctx, mediaID); err != nil {
		return err
	}

	if err := s.process(ctx, media); err != nil {
		if markErr := s.repo.MarkFailed(ctx, mediaID); markErr != nil {
			logger.Error("Failed to mark media failed", markErr)
		}
		return err
	}

	return nil
}

func (s *mediaService) process(ctx context.Context, media *model.ProductMedia) error {
	data, err := s.fetch(ctx, media.SourceURL)
	if err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}
	if err := s.processor.Validate(data); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}

	renditions, err := s.processor.Process(data)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	base := "media/" + media.ID.String()
	displayURL, err := s.storage.Upload(ctx, base+"/display.jpg", renditions.Display, "image/jpeg")
	if err != nil {
		return fmt.Errorf("upload display: %w", err)
	}
	thumbnailURL, err := s.storage.Upload(ctx, base+"/thumbnail.jpg", renditions.Thumbnail, "image/jpeg")
	if err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	return s.repo.MarkCompleted(ctx, media.ID, displayURL, thumbnailURL, int64(len(data)))
}

func (s *mediaService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, s.processor.MaxSize+1))
}
