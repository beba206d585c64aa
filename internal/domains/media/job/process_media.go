package job

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/media/service"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"
)

// ProcessMediaJob consumes media:process tasks. Retry policy lives on the
// task (max attempts) and the worker config (fixed delay between tries).
type ProcessMediaJob struct {
	mediaService service.MediaService
}

func NewProcessMediaJob(mediaService service.MediaService) *ProcessMediaJob {
	return &ProcessMediaJob{
		mediaService: mediaService,
	}
}

func (j *ProcessMediaJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload shared.ProcessMediaPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logger.Error("Invalid media payload", err)
		return err
	}

	if err := j.mediaService.Process(ctx, payload.MediaID); err != nil {
		logger.Error("Media processing attempt failed", err)
		return err
	}

	return nil
}
