package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/container"
)

// mediaRetryDelay is the fixed wait between media processing attempts.
const mediaRetryDelay = 60 * time.Second

type asynqServer struct {
	*asynq.Server
}

func setupAsynqServer(c *container.Container, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		c.RedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				shared.QueueNotification: 6,
				shared.QueueEmail:        3,
				shared.QueueMedia:        3,
				shared.QueueMaintenance:  1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				if task.Type() == shared.TypeProcessProductMedia {
					return mediaRetryDelay
				}
				return asynq.DefaultRetryDelayFunc(n, err, task)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq] Task failed - type: %s, error: %v", task.Type(), err)
			}),
		},
	)

	go func() {
		log.Println("[Worker] Starting...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[Worker] Failed: %v", err)
		}
	}()

	return &asynqServer{Server: srv}
}

func (s *asynqServer) Shutdown() {
	log.Println("[Worker] Shutting down task server...")
	s.Server.Shutdown()
}
