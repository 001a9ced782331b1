package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// OutlineRequest asks the backend for a three-act outline.
type OutlineRequest struct {
	Concept        string `json:"concept"`
	Genre          string `json:"genre"`
	ActCount       int    `json:"actCount"`
	TargetDuration int    `json:"targetDuration,omitempty"`
	AllowNSFW      bool   `json:"allowNsfw"`
}

type ScriptRequest struct {
	Outline   *Outline `json:"outline"`
	Genre     string   `json:"genre"`
	Style     string   `json:"style"`
	AllowNSFW bool     `json:"allowNsfw"`
}

// BreakdownConfig is the per-run config bag carried with every scene
// breakdown request.
type BreakdownConfig struct {
	Pace           string `json:"pace"`
	Style          string `json:"style"`
	TargetDuration int    `json:"targetDuration,omitempty"`
	TotalScenes    int    `json:"totalScenes"`
	AllowNSFW      bool   `json:"allowNsfw"`
}

type BreakdownRequest struct {
	SceneNumber int             `json:"sceneNumber"`
	Heading     SceneHeading    `json:"heading"`
	SceneText   string          `json:"sceneText"`
	Genre       string          `json:"genre"`
	Config      BreakdownConfig `json:"config"`
}

// PromptRequest carries one scene's shots to the prompt generator.
// Characters is omitted entirely when the run selected none, so the backend
// default applies.
type PromptRequest struct {
	Shots        []Shot       `json:"shots"`
	Heading      SceneHeading `json:"sceneHeading"`
	Genre        string       `json:"genre"`
	Style        string       `json:"style"`
	AllowNSFW    bool         `json:"allowNsfw"`
	ShotDuration int          `json:"shotDuration"`
	Characters   []Character  `json:"characters,omitempty"`
}

// Generator is the boundary to the generation backend. Breakdown and prompt
// responses come back raw so the schema tolerance in normalize.go stays in
// the core rather than in the transport.
type Generator interface {
	GenerateOutline(ctx context.Context, req OutlineRequest) (*Outline, error)
	GenerateScript(ctx context.Context, req ScriptRequest) (string, error)
	ParseScript(ctx context.Context, scriptText string) (*ParsedScript, error)
	BreakdownScene(ctx context.Context, req BreakdownRequest) (json.RawMessage, error)
	GeneratePrompts(ctx context.Context, req PromptRequest) (json.RawMessage, error)
}

// Checkpointer persists a durable story record at stage boundaries. A
// checkpoint failure is reported but never corrupts or stops the run.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, cfg PipelineConfig, state RunState, status string) error
}

type runJob struct {
	cfg   PipelineConfig
	runID string
	start Stage
}

// Orchestrator drives pipeline runs. Entry points validate synchronously,
// register the run in the registry, then hand execution to the launcher; the
// caller never blocks on generation. The production launcher enqueues the run
// on the task queue, the default one spawns a goroutine.
type Orchestrator struct {
	gen      Generator
	bridge   Checkpointer
	registry *Registry
	launch   func(projectID string) error

	mu   sync.Mutex
	jobs map[string]*runJob
}

func NewOrchestrator(gen Generator, bridge Checkpointer, registry *Registry) *Orchestrator {
	o := &Orchestrator{
		gen:      gen,
		bridge:   bridge,
		registry: registry,
		jobs:     make(map[string]*runJob),
	}
	o.launch = func(projectID string) error {
		go func() {
			if err := o.Execute(projectID); err != nil {
				log.Printf("[pipeline] run for project %s: %v", projectID, err)
			}
		}()
		return nil
	}
	return o
}

// SetLauncher replaces how registered runs get executed (e.g. queue enqueue).
func (o *Orchestrator) SetLauncher(fn func(projectID string) error) {
	o.launch = fn
}

// Registry exposes the run state container for observers.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start launches a run from a concept. Validation failures are returned
// synchronously and nothing is registered.
func (o *Orchestrator) Start(cfg PipelineConfig) error {
	if strings.TrimSpace(cfg.Concept) == "" {
		return &ValidationError{Field: "concept", Reason: "a concept is required"}
	}
	if err := validateGenre(cfg.Genre); err != nil {
		return err
	}
	cfg.Mode = ModeConcept

	state := NewRunState(cfg.ProjectID, cfg.StoryID)
	markDone(&state, true, StageConcept)
	return o.register(cfg, state, StageOutline)
}

// StartFromScript launches a run from an existing screenplay. Outline and
// script are marked complete as supplied and the run begins at breakdown.
func (o *Orchestrator) StartFromScript(cfg PipelineConfig) error {
	if strings.TrimSpace(cfg.ScreenplayText) == "" {
		return &ValidationError{Field: "screenplay", Reason: "screenplay text is required"}
	}
	if err := validateGenre(cfg.Genre); err != nil {
		return err
	}
	cfg.Mode = ModeScreenplay

	state := NewRunState(cfg.ProjectID, cfg.StoryID)
	markDone(&state, true, StageConcept, StageOutline, StageScript)
	state.Script = cfg.ScreenplayText
	return o.register(cfg, state, StageBreakdown)
}

// ContinueFrom resumes a previously saved, partially generated story at the
// first missing artifact. With all four artifacts present it is a no-op that
// registers an already-complete run.
func (o *Orchestrator) ContinueFrom(cfg PipelineConfig, partial PartialArtifacts) error {
	if err := validateGenre(cfg.Genre); err != nil {
		return err
	}
	if partial.Script == "" && cfg.ScreenplayText != "" {
		partial.Script = cfg.ScreenplayText
	}

	state := NewRunState(cfg.ProjectID, cfg.StoryID)
	markDone(&state, true, StageConcept)

	start := StageOutline
	switch {
	case partial.Outline == nil:
		if strings.TrimSpace(cfg.Concept) == "" {
			return &ValidationError{Field: "concept", Reason: "a concept is required to regenerate the outline"}
		}
	case partial.Script == "":
		state.Outline = partial.Outline
		markDone(&state, true, StageOutline)
		start = StageScript
	case partial.Scenes == nil:
		state.Outline = partial.Outline
		state.Script = partial.Script
		markDone(&state, true, StageOutline, StageScript)
		start = StageBreakdown
	case partial.Prompts == nil:
		state.Outline = partial.Outline
		state.Script = partial.Script
		state.Scenes = partial.Scenes
		markDone(&state, true, StageOutline, StageScript, StageBreakdown)
		start = StagePrompts
	default:
		// Nothing left to generate.
		state.Outline = partial.Outline
		state.Script = partial.Script
		state.Scenes = partial.Scenes
		state.Prompts = partial.Prompts
		markDone(&state, true, StageOutline, StageScript, StageBreakdown, StagePrompts)
		markDone(&state, false, StageComplete)
		state.CurrentStage = StageComplete
		o.registry.Register(state, uuid.NewString())
		return nil
	}
	return o.register(cfg, state, start)
}

func (o *Orchestrator) register(cfg PipelineConfig, state RunState, start Stage) error {
	runID := uuid.NewString()
	state.CurrentStage = start
	state.IsRunning = true

	o.mu.Lock()
	o.jobs[cfg.ProjectID] = &runJob{cfg: cfg, runID: runID, start: start}
	o.mu.Unlock()

	o.registry.Register(state, runID)

	if err := o.launch(cfg.ProjectID); err != nil {
		o.mu.Lock()
		delete(o.jobs, cfg.ProjectID)
		o.mu.Unlock()
		o.registry.Clear(cfg.ProjectID)
		return fmt.Errorf("launch pipeline run: %w", err)
	}
	return nil
}

// Execute runs the registered job for a project to completion in the calling
// goroutine. The queue worker calls this; tests may call it directly.
func (o *Orchestrator) Execute(projectID string) error {
	o.mu.Lock()
	job, ok := o.jobs[projectID]
	if ok {
		delete(o.jobs, projectID)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending run for project %s", projectID)
	}
	o.run(context.Background(), job)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job *runJob) {
	pid, rid := job.cfg.ProjectID, job.runID

	for idx := StageIndex(job.start); idx < StageIndex(StageComplete); idx++ {
		stage := StageOrder[idx]
		o.registry.Update(pid, rid, func(s *RunState) {
			s.CurrentStage = stage
			s.Stages[stage] = StageStatus{State: StageInProgress}
			s.Progress = nil
		})

		var err error
		switch stage {
		case StageOutline:
			err = o.runOutline(ctx, job)
		case StageScript:
			err = o.runScript(ctx, job)
		case StageBreakdown:
			err = o.runBreakdown(ctx, job)
		case StagePrompts:
			err = o.runPrompts(ctx, job)
		}

		if err != nil {
			log.Printf("[pipeline] project %s stage %s failed: %v", pid, stage, err)
			o.registry.Update(pid, rid, func(s *RunState) {
				s.Stages[stage] = StageStatus{State: StageFailed, Error: err.Error()}
				s.Progress = nil
				s.IsRunning = false
			})
			return
		}

		o.registry.Update(pid, rid, func(s *RunState) {
			s.Stages[stage] = StageStatus{State: StageDone}
			s.Progress = nil
		})
		if tag, ok := checkpointStatus[stage]; ok {
			o.checkpoint(ctx, job, tag)
		}
	}

	o.registry.Update(pid, rid, func(s *RunState) {
		s.Stages[StageComplete] = StageStatus{State: StageDone}
		s.CurrentStage = StageComplete
		s.Progress = nil
		s.IsRunning = false
	})
	o.checkpoint(ctx, job, "complete")
	log.Printf("[pipeline] project %s run complete", pid)
}

// checkpointStatus maps a completed stage to the story status tag written at
// its boundary. Prompts completion is folded into the final "complete" save.
var checkpointStatus = map[Stage]string{
	StageOutline:   "outline",
	StageScript:    "script",
	StageBreakdown: "breakdown",
}

func (o *Orchestrator) checkpoint(ctx context.Context, job *runJob, status string) {
	if o.bridge == nil {
		return
	}
	state, ok := o.registry.Snapshot(job.cfg.ProjectID)
	if !ok {
		return
	}
	if err := o.bridge.SaveCheckpoint(ctx, job.cfg, state, status); err != nil {
		// Persistence trouble is surfaced in logs but never fails the run.
		log.Printf("[pipeline] checkpoint %q for project %s failed: %v", status, job.cfg.ProjectID, err)
	}
}

func (o *Orchestrator) runOutline(ctx context.Context, job *runJob) error {
	cfg := job.cfg
	outline, err := o.gen.GenerateOutline(ctx, OutlineRequest{
		Concept:        cfg.Concept,
		Genre:          cfg.Genre,
		ActCount:       3,
		TargetDuration: cfg.TargetDuration,
		AllowNSFW:      cfg.AllowNSFW,
	})
	if err != nil {
		return err
	}
	o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
		s.Outline = outline
	})
	return nil
}

func (o *Orchestrator) runScript(ctx context.Context, job *runJob) error {
	cfg := job.cfg
	state, ok := o.registry.Snapshot(cfg.ProjectID)
	if !ok || state.Outline == nil {
		return fmt.Errorf("no outline available for script generation")
	}
	script, err := o.gen.GenerateScript(ctx, ScriptRequest{
		Outline:   state.Outline,
		Genre:     cfg.Genre,
		Style:     cfg.EffectiveStyle(),
		AllowNSFW: cfg.AllowNSFW,
	})
	if err != nil {
		return err
	}
	o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
		s.Script = script
	})
	return nil
}

func (o *Orchestrator) runBreakdown(ctx context.Context, job *runJob) error {
	cfg := job.cfg
	state, ok := o.registry.Snapshot(cfg.ProjectID)
	if !ok || state.Script == "" {
		return fmt.Errorf("no script available for breakdown")
	}

	parsed, err := o.gen.ParseScript(ctx, state.Script)
	if err != nil {
		return err
	}
	if len(parsed.Scenes) != len(parsed.SceneTexts) {
		return fmt.Errorf("scene parse returned %d headings for %d texts", len(parsed.Scenes), len(parsed.SceneTexts))
	}

	total := len(parsed.Scenes)
	shotDuration := cfg.EffectiveShotDuration()
	scenes := make([]SceneBreakdown, 0, total)

	for i, heading := range parsed.Scenes {
		raw, err := o.gen.BreakdownScene(ctx, BreakdownRequest{
			SceneNumber: i + 1,
			Heading:     heading,
			SceneText:   parsed.SceneTexts[i],
			Genre:       cfg.Genre,
			Config: BreakdownConfig{
				Pace:           cfg.Pace,
				Style:          cfg.EffectiveStyle(),
				TargetDuration: cfg.TargetDuration,
				TotalScenes:    total,
				AllowNSFW:      cfg.AllowNSFW,
			},
		})
		if err != nil {
			return fmt.Errorf("scene %d breakdown: %w", i+1, err)
		}

		scenes = append(scenes, NormalizeBreakdown(i+1, heading, raw, shotDuration))
		published := append([]SceneBreakdown(nil), scenes...)
		progress := &ProgressInfo{
			Stage:   StageBreakdown,
			Current: i + 1,
			Total:   total,
			Label:   sceneLabel(heading, i+1),
		}
		o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
			s.Scenes = published
			s.Progress = progress
		})
	}
	return nil
}

func (o *Orchestrator) runPrompts(ctx context.Context, job *runJob) error {
	cfg := job.cfg
	state, ok := o.registry.Snapshot(cfg.ProjectID)
	if !ok {
		return fmt.Errorf("run state missing for project %s", cfg.ProjectID)
	}

	total := len(state.Scenes)
	shotDuration := cfg.EffectiveShotDuration()
	prompts := []ShotPrompt{}

	for i, scene := range state.Scenes {
		progress := &ProgressInfo{
			Stage:   StagePrompts,
			Current: i + 1,
			Total:   total,
			Label:   sceneLabel(scene.Heading, scene.SceneNumber),
		}

		if len(scene.Shots) == 0 {
			// A scene with no usable shots is skipped, not fatal.
			log.Printf("[pipeline] scene %d has no shots, skipping prompts", scene.SceneNumber)
			o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
				s.Progress = progress
			})
			continue
		}

		req := PromptRequest{
			Shots:        scene.Shots,
			Heading:      scene.Heading,
			Genre:        cfg.Genre,
			Style:        cfg.EffectiveStyle(),
			AllowNSFW:    cfg.AllowNSFW,
			ShotDuration: shotDuration,
		}
		if len(cfg.Characters) > 0 {
			req.Characters = cfg.Characters
		}

		raw, err := o.gen.GeneratePrompts(ctx, req)
		if err != nil {
			// One scene failing contributes zero prompts; the stage goes on.
			log.Printf("[pipeline] prompts for scene %d failed: %v", scene.SceneNumber, err)
			o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
				s.Progress = progress
			})
			continue
		}

		scenePrompts := ExtractPrompts(raw)
		for j := range scenePrompts {
			// Per-shot duration is a client-owned setting, not a backend
			// decision.
			scenePrompts[j].Duration = shotDuration
		}
		prompts = append(prompts, scenePrompts...)

		published := append([]ShotPrompt(nil), prompts...)
		o.registry.Update(cfg.ProjectID, job.runID, func(s *RunState) {
			s.Prompts = published
			s.Progress = progress
		})
	}
	return nil
}

const sceneLabelLimit = 40

func sceneLabel(heading SceneHeading, sceneNumber int) string {
	label := strings.TrimSpace(heading.Location)
	if label == "" {
		label = fmt.Sprintf("Scene %d", sceneNumber)
	}
	runes := []rune(label)
	if len(runes) > sceneLabelLimit {
		label = string(runes[:sceneLabelLimit])
	}
	return label
}

func validateGenre(genre string) error {
	if strings.TrimSpace(genre) == "" {
		return &ValidationError{Field: "genre", Reason: "a genre is required"}
	}
	if !ValidGenre(genre) {
		return &ValidationError{Field: "genre", Reason: fmt.Sprintf("unknown genre %q", genre)}
	}
	return nil
}

func markDone(state *RunState, supplied bool, stages ...Stage) {
	for _, st := range stages {
		state.Stages[st] = StageStatus{State: StageDone, Supplied: supplied}
	}
}
