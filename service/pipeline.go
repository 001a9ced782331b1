package service

import (
	"vibeboard-server/pipeline"

	"gorm.io/gorm"
)

// Shared pipeline wiring, initialized once from main.
var (
	Runs     *pipeline.Registry
	Orch     *pipeline.Orchestrator
	Sessions *SessionSaver
)

// InitPipeline builds the registry, orchestrator and session saver. Runs are
// launched through the task queue so they execute detached from the HTTP
// request that started them.
func InitPipeline(db *gorm.DB) {
	Runs = pipeline.NewRegistry()
	Orch = pipeline.NewOrchestrator(NewGenClient(), NewStoryBridge(db), Runs)
	Orch.SetLauncher(EnqueuePipelineRun)
	Sessions = NewSessionSaver(db)
	Sessions.Start()
}
