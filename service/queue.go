package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vibeboard-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypePipelineRun = "pipeline:run"
)

type PipelineRunPayload struct {
	ProjectID string `json:"project_id"`
}

var QueueClient *asynq.Client

func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueuePipelineRun hands a registered pipeline run to the background
// worker. MaxRetry is zero on purpose: a failed stage waits for manual
// continuation instead of silently repeating expensive generation calls.
func EnqueuePipelineRun(projectID string) error {
	payload, err := json.Marshal(PipelineRunPayload{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypePipelineRun, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(60*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[Queue] pipeline run enqueued: project=%s, task=%s", projectID, info.ID)
	return nil
}
