package main

import (
	"log"

	"marketplace-backend/internal/infrastructure/queue"
	"marketplace-backend/pkg/container"
)

type schedulerRunner struct {
	*queue.Scheduler
}

func setupScheduler(c *container.Container) *schedulerRunner {
	scheduler := queue.NewScheduler(c.RedisOpt(), c.Config.Jobs)

	if err := scheduler.RegisterPeriodicJobs(); err != nil {
		log.Fatalf("[Scheduler] Failed to register jobs: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[Scheduler] Failed: %v", err)
		}
	}()

	return &schedulerRunner{Scheduler: scheduler}
}
