package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"vibeboard-server/config"
	"vibeboard-server/pipeline"

	"github.com/hibiken/asynq"
)

// Processor consumes pipeline run tasks. The run itself executes inside the
// worker goroutine, mutating the shared registry as it goes; that is what
// keeps a run alive after the view that started it navigated away.
type Processor struct {
	Orch *pipeline.Orchestrator
}

func NewProcessor(orch *pipeline.Orchestrator) *Processor {
	return &Processor{Orch: orch}
}

func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePipelineRun, p.HandlePipelineRun)

	log.Printf("starting pipeline processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run task server: %v", err)
		}
	}()
}

// HandlePipelineRun executes the registered run for the payload's project.
// Stage failures are recorded in the registry and the story record, not
// returned: there is nothing for the queue to retry.
func (p *Processor) HandlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload PipelineRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("processing pipeline run for project %s", payload.ProjectID)
	if err := p.Orch.Execute(payload.ProjectID); err != nil {
		// The job vanished (superseded or double delivery); nothing to do.
		log.Printf("pipeline run skipped: %v", err)
	}
	return nil
}
