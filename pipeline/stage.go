package pipeline

import "time"

// Stage is one ordered phase of the generation pipeline.
type Stage string

const (
	StageConcept   Stage = "concept"
	StageOutline   Stage = "outline"
	StageScript    Stage = "script"
	StageBreakdown Stage = "breakdown"
	StagePrompts   Stage = "prompts"
	StageComplete  Stage = "complete"
)

// StageOrder is the pipeline order; a later stage never starts before its
// predecessor is complete.
var StageOrder = []Stage{
	StageConcept,
	StageOutline,
	StageScript,
	StageBreakdown,
	StagePrompts,
	StageComplete,
}

// StageIndex returns the position of s in the pipeline, or -1.
func StageIndex(s Stage) int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

type StageState string

const (
	StagePending    StageState = "pending"
	StageInProgress StageState = "in_progress"
	StageDone       StageState = "complete"
	StageFailed      StageState = "error"
)

// StageStatus tracks one stage within one run. Supplied marks stages whose
// artifact was provided by the user or a saved story rather than generated.
type StageStatus struct {
	State    StageState `json:"state"`
	Supplied bool       `json:"supplied,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// CanTransition reports whether a stage status may move from one state to
// another. Transitions are monotonic except error -> in_progress, which is
// the manual continuation path.
func CanTransition(from, to StageState) bool {
	switch from {
	case StagePending:
		return to == StageInProgress || to == StageDone
	case StageInProgress:
		return to == StageDone || to == StageFailed
	case StageFailed:
		return to == StageInProgress
	default:
		return false
	}
}

// RunState is the full observable state of one pipeline run. It lives in the
// Registry independent of any view; observers read copies.
type RunState struct {
	ProjectID    string                `json:"projectId"`
	StoryID      string                `json:"storyId"`
	CurrentStage Stage                 `json:"currentStage"`
	Stages       map[Stage]StageStatus `json:"stages"`
	Outline      *Outline              `json:"outline,omitempty"`
	Script       string                `json:"script,omitempty"`
	Scenes       []SceneBreakdown      `json:"scenes,omitempty"`
	Prompts      []ShotPrompt          `json:"prompts,omitempty"`
	Progress     *ProgressInfo         `json:"progress,omitempty"`
	IsRunning    bool                  `json:"isRunning"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// NewRunState returns a run with every stage pending.
func NewRunState(projectID, storyID string) RunState {
	stages := make(map[Stage]StageStatus, len(StageOrder))
	for _, s := range StageOrder {
		stages[s] = StageStatus{State: StagePending}
	}
	return RunState{
		ProjectID:    projectID,
		StoryID:      storyID,
		CurrentStage: StageConcept,
		Stages:       stages,
		UpdatedAt:    time.Now(),
	}
}

// Clone returns a copy safe to hand to observers. Artifact slices are shared;
// the orchestrator always replaces them wholesale instead of mutating in
// place, so a published slice never changes underneath a reader.
func (s RunState) Clone() RunState {
	out := s
	out.Stages = make(map[Stage]StageStatus, len(s.Stages))
	for k, v := range s.Stages {
		out.Stages[k] = v
	}
	if s.Progress != nil {
		p := *s.Progress
		out.Progress = &p
	}
	return out
}

// Finished reports whether the run reached the end of the pipeline.
func (s RunState) Finished() bool {
	return s.Stages[StageComplete].State == StageDone
}

// Failed reports whether any stage is in error.
func (s RunState) Failed() (Stage, bool) {
	for _, stage := range StageOrder {
		if s.Stages[stage].State == StageFailed {
			return stage, true
		}
	}
	return "", false
}
