package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeGenerator plays the generation backend with scripted responses.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	outline    *Outline
	outlineErr error

	script    string
	scriptErr error

	parsed   *ParsedScript
	parseErr error

	breakdowns   map[int]json.RawMessage // scene number -> raw response
	breakdownErr map[int]error

	prompts   map[int]json.RawMessage // scene number -> raw response
	promptErr map[int]error

	lastScriptReq  ScriptRequest
	lastPromptReqs []PromptRequest
}

func (f *fakeGenerator) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGenerator) GenerateOutline(ctx context.Context, req OutlineRequest) (*Outline, error) {
	f.record("outline")
	if f.outlineErr != nil {
		return nil, f.outlineErr
	}
	return f.outline, nil
}

func (f *fakeGenerator) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	f.record("script")
	f.lastScriptReq = req
	if f.scriptErr != nil {
		return "", f.scriptErr
	}
	return f.script, nil
}

func (f *fakeGenerator) ParseScript(ctx context.Context, scriptText string) (*ParsedScript, error) {
	f.record("parse")
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.parsed, nil
}

func (f *fakeGenerator) BreakdownScene(ctx context.Context, req BreakdownRequest) (json.RawMessage, error) {
	f.record(fmt.Sprintf("breakdown:%d", req.SceneNumber))
	if err := f.breakdownErr[req.SceneNumber]; err != nil {
		return nil, err
	}
	return f.breakdowns[req.SceneNumber], nil
}

func (f *fakeGenerator) GeneratePrompts(ctx context.Context, req PromptRequest) (json.RawMessage, error) {
	sceneNumber := 0
	if len(req.Shots) > 0 {
		sceneNumber = req.Shots[0].ShotNumber // scenes below use disjoint shot numbers
	}
	f.mu.Lock()
	f.lastPromptReqs = append(f.lastPromptReqs, req)
	f.mu.Unlock()
	f.record(fmt.Sprintf("prompts:%d", sceneNumber))
	if err := f.promptErr[sceneNumber]; err != nil {
		return nil, err
	}
	return f.prompts[sceneNumber], nil
}

func (f *fakeGenerator) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeBridge records checkpoint status tags in order.
type fakeBridge struct {
	mu       sync.Mutex
	statuses []string
	err      error
}

func (b *fakeBridge) SaveCheckpoint(ctx context.Context, cfg PipelineConfig, state RunState, status string) error {
	b.mu.Lock()
	b.statuses = append(b.statuses, status)
	b.mu.Unlock()
	return b.err
}

func testConfig() PipelineConfig {
	return PipelineConfig{
		ProjectID:    "proj-1",
		StoryID:      "story-1",
		Concept:      "a heist crew discovers their target is one of their own",
		Genre:        "thriller",
		Pace:         PaceMedium,
		ShotDuration: 4,
	}
}

// twoSceneGenerator scripts a complete happy-path backend: two scenes, three
// shots, three prompts. Shot numbers are global (1,2 then 3) so the fake can
// route prompt requests by the first shot number.
func twoSceneGenerator() *fakeGenerator {
	return &fakeGenerator{
		outline: &Outline{
			Title:   "Inside Job",
			Logline: "the vault was never the target",
			Acts:    []OutlineAct{{Number: 1}, {Number: 2}, {Number: 3}},
			Themes:  []string{"betrayal"},
		},
		script: "INT. VAULT - NIGHT\n\nThe door swings open.",
		parsed: &ParsedScript{
			Scenes: []SceneHeading{
				{IntExt: "INT", Location: "VAULT", TimeOfDay: "NIGHT"},
				{IntExt: "EXT", Location: "ROOFTOP", TimeOfDay: "DAWN"},
			},
			SceneTexts: []string{"The door swings open.", "Sirens in the distance."},
		},
		breakdowns: map[int]json.RawMessage{
			1: rawScene("shots", []Shot{
				{ShotNumber: 1, Description: "vault door", Duration: 0},
				{ShotNumber: 2, Description: "crew enters", Duration: 6},
			}),
			2: rawScene("shot_list", []Shot{
				{ShotNumber: 3, Description: "skyline", Duration: 0},
			}),
		},
		prompts: map[int]json.RawMessage{
			1: mustMarshal([]ShotPrompt{
				{ShotNumber: 1, FirstFrame: "vault door in shadow", VideoPrompt: "slow push", Duration: 99},
				{ShotNumber: 2, FirstFrame: "crew silhouettes", VideoPrompt: "handheld follow", Duration: 99},
			}),
			3: mustMarshal(map[string]interface{}{
				"prompts": []ShotPrompt{
					{ShotNumber: 3, FirstFrame: "dawn skyline", VideoPrompt: "static wide", Duration: 99},
				},
			}),
		},
	}
}

func rawScene(key string, shots []Shot) json.RawMessage {
	return mustMarshal(map[string]interface{}{
		"description":   "scene description",
		"emotionalBeat": "tension",
		key:             shots,
	})
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// newSyncOrchestrator executes runs inline so tests are deterministic.
func newSyncOrchestrator(gen Generator, bridge Checkpointer) *Orchestrator {
	o := NewOrchestrator(gen, bridge, NewRegistry())
	o.SetLauncher(func(projectID string) error {
		return o.Execute(projectID)
	})
	return o
}

func TestStartHappyPath(t *testing.T) {
	gen := twoSceneGenerator()
	bridge := &fakeBridge{}
	o := newSyncOrchestrator(gen, bridge)

	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state, ok := o.Registry().Snapshot("proj-1")
	if !ok {
		t.Fatalf("no run state registered")
	}
	if !state.Finished() {
		t.Fatalf("run should be finished: %+v", state.Stages)
	}
	if state.IsRunning {
		t.Errorf("finished run should not be running")
	}
	if state.Progress != nil {
		t.Errorf("progress should be cleared at the end, got %+v", state.Progress)
	}
	if state.Outline == nil || state.Outline.Title != "Inside Job" {
		t.Errorf("outline artifact missing: %+v", state.Outline)
	}
	if state.Script == "" {
		t.Errorf("script artifact missing")
	}
	if len(state.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(state.Scenes))
	}
	if len(state.Scenes[0].Shots) != 2 || len(state.Scenes[1].Shots) != 1 {
		t.Errorf("shot normalization wrong: %+v", state.Scenes)
	}
	if state.Scenes[0].Shots[0].Duration != 4 {
		t.Errorf("missing shot duration should default to config value, got %d", state.Scenes[0].Shots[0].Duration)
	}
	if len(state.Prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(state.Prompts))
	}
	for _, p := range state.Prompts {
		if p.Duration != 4 {
			t.Errorf("prompt duration must be stamped from config, got %d", p.Duration)
		}
	}

	wantStatuses := []string{"outline", "script", "breakdown", "complete"}
	if strings.Join(bridge.statuses, ",") != strings.Join(wantStatuses, ",") {
		t.Errorf("checkpoint statuses = %v, want %v", bridge.statuses, wantStatuses)
	}
}

func TestStartValidation(t *testing.T) {
	o := newSyncOrchestrator(twoSceneGenerator(), &fakeBridge{})

	cfg := testConfig()
	cfg.Concept = "   "
	err := o.Start(cfg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing concept, got %v", err)
	}

	cfg = testConfig()
	cfg.Genre = "telenovela"
	if err := o.Start(cfg); err == nil {
		t.Fatalf("expected ValidationError for unknown genre")
	}

	if _, ok := o.Registry().Snapshot("proj-1"); ok {
		t.Errorf("a rejected run must not be registered")
	}

	cfg = testConfig()
	cfg.Concept = ""
	cfg.ScreenplayText = ""
	if err := o.StartFromScript(cfg); err == nil {
		t.Errorf("expected ValidationError for missing screenplay")
	}
}

func TestMonotonicStageOrder(t *testing.T) {
	o := newSyncOrchestrator(twoSceneGenerator(), &fakeBridge{})

	var observed []int
	cancel := o.Registry().Subscribe(func(s RunState) {
		for _, stage := range StageOrder {
			if s.Stages[stage].State == StageInProgress {
				observed = append(observed, StageIndex(stage))
			}
		}
	})
	defer cancel()

	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Fatalf("stage order regressed: %v", observed)
		}
	}
}

func TestScriptFailureHaltsRun(t *testing.T) {
	gen := twoSceneGenerator()
	gen.scriptErr = errors.New("model overloaded")
	bridge := &fakeBridge{}
	o := newSyncOrchestrator(gen, bridge)

	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if state.Stages[StageScript].State != StageFailed {
		t.Fatalf("script stage should be in error: %+v", state.Stages[StageScript])
	}
	if !strings.Contains(state.Stages[StageScript].Error, "model overloaded") {
		t.Errorf("error message not preserved: %q", state.Stages[StageScript].Error)
	}
	if state.Stages[StageBreakdown].State != StagePending {
		t.Errorf("breakdown must not start after a script failure")
	}
	if state.Outline == nil {
		t.Errorf("completed outline artifact must survive the failure")
	}
	if state.IsRunning {
		t.Errorf("failed run should not be running")
	}
	if state.Progress != nil {
		t.Errorf("progress should be cleared on error")
	}
	for _, call := range gen.callNames() {
		if strings.HasPrefix(call, "breakdown") || strings.HasPrefix(call, "prompts") {
			t.Errorf("no later-stage calls expected after failure, saw %s", call)
		}
	}
	// Only the outline checkpoint happened.
	if strings.Join(bridge.statuses, ",") != "outline" {
		t.Errorf("checkpoints = %v, want [outline]", bridge.statuses)
	}
}

func TestEmptySceneSkippedInPrompts(t *testing.T) {
	gen := twoSceneGenerator()
	// Scene 2's breakdown carries no recognizable shot key at all.
	gen.breakdowns[2] = mustMarshal(map[string]interface{}{"description": "empty scene"})

	o := newSyncOrchestrator(gen, &fakeBridge{})
	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if !state.Finished() {
		t.Fatalf("run should finish despite an empty scene")
	}
	if len(state.Prompts) != 2 {
		t.Errorf("only scene 1 should contribute prompts, got %d", len(state.Prompts))
	}
	for _, call := range gen.callNames() {
		if call == "prompts:0" {
			t.Errorf("no prompt request should be issued for the empty scene")
		}
	}
}

func TestPromptFailureIsolatedToScene(t *testing.T) {
	gen := twoSceneGenerator()
	gen.promptErr = map[int]error{1: errors.New("scene too weird")}

	o := newSyncOrchestrator(gen, &fakeBridge{})
	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if state.Stages[StagePrompts].State != StageDone {
		t.Fatalf("prompts stage should complete despite a scene failure: %+v", state.Stages[StagePrompts])
	}
	if !state.Finished() {
		t.Fatalf("run should finish")
	}
	// Scene 1's two prompts are lost; scene 2's single prompt survives.
	if len(state.Prompts) != 1 || state.Prompts[0].ShotNumber != 3 {
		t.Errorf("expected only scene 2's prompt, got %+v", state.Prompts)
	}
}

func TestStartFromScript(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	cfg := testConfig()
	cfg.Concept = ""
	cfg.ScreenplayText = "INT. VAULT - NIGHT\n\nThe door swings open."
	if err := o.StartFromScript(cfg); err != nil {
		t.Fatalf("StartFromScript: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if !state.Finished() {
		t.Fatalf("run should finish: %+v", state.Stages)
	}
	for _, stage := range []Stage{StageOutline, StageScript} {
		st := state.Stages[stage]
		if st.State != StageDone || !st.Supplied {
			t.Errorf("stage %s should be complete and marked supplied: %+v", stage, st)
		}
	}
	for _, call := range gen.callNames() {
		if call == "outline" || call == "script" {
			t.Errorf("screenplay mode must not generate %s", call)
		}
	}
	if state.Script != cfg.ScreenplayText {
		t.Errorf("supplied screenplay should be the run's script")
	}
}

func TestContinueFromResumesAtFirstMissing(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	partial := PartialArtifacts{
		Outline: &Outline{Title: "Inside Job", Acts: []OutlineAct{{Number: 1}}},
		Script:  "INT. VAULT - NIGHT\n\nThe door swings open.",
	}
	if err := o.ContinueFrom(testConfig(), partial); err != nil {
		t.Fatalf("ContinueFrom: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if !state.Finished() {
		t.Fatalf("continuation should run to completion: %+v", state.Stages)
	}
	for _, stage := range []Stage{StageOutline, StageScript} {
		st := state.Stages[stage]
		if st.State != StageDone || !st.Supplied {
			t.Errorf("stage %s should be complete/supplied: %+v", stage, st)
		}
	}
	for _, call := range gen.callNames() {
		if call == "outline" || call == "script" {
			t.Errorf("continuation must not regenerate %s", call)
		}
	}
	if len(state.Scenes) != 2 || len(state.Prompts) != 3 {
		t.Errorf("breakdown/prompts tail did not run: scenes=%d prompts=%d", len(state.Scenes), len(state.Prompts))
	}
}

func TestContinueFromComplete(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	partial := PartialArtifacts{
		Outline: &Outline{Title: "Inside Job"},
		Script:  "INT. VAULT - NIGHT",
		Scenes:  []SceneBreakdown{{SceneNumber: 1}},
		Prompts: []ShotPrompt{{ShotNumber: 1}},
	}
	if err := o.ContinueFrom(testConfig(), partial); err != nil {
		t.Fatalf("ContinueFrom: %v", err)
	}

	state, _ := o.Registry().Snapshot("proj-1")
	if !state.Finished() {
		t.Fatalf("already-complete story should register finished")
	}
	if state.IsRunning {
		t.Errorf("no-op continuation should not be running")
	}
	if len(gen.callNames()) != 0 {
		t.Errorf("no generation calls expected, saw %v", gen.callNames())
	}
}

func TestProgressReportedPerScene(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	var breakdownProgress []ProgressInfo
	cancel := o.Registry().Subscribe(func(s RunState) {
		if s.Progress != nil && s.Progress.Stage == StageBreakdown {
			breakdownProgress = append(breakdownProgress, *s.Progress)
		}
	})
	defer cancel()

	if err := o.Start(testConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(breakdownProgress) != 2 {
		t.Fatalf("expected one progress event per scene, got %+v", breakdownProgress)
	}
	if breakdownProgress[0].Current != 1 || breakdownProgress[0].Total != 2 || breakdownProgress[0].Label != "VAULT" {
		t.Errorf("first progress event wrong: %+v", breakdownProgress[0])
	}
	if breakdownProgress[1].Current != 2 || breakdownProgress[1].Label != "ROOFTOP" {
		t.Errorf("second progress event wrong: %+v", breakdownProgress[1])
	}
}

func TestSceneLabelFallbackAndTruncation(t *testing.T) {
	if got := sceneLabel(SceneHeading{}, 7); got != "Scene 7" {
		t.Errorf("fallback label = %q", got)
	}
	long := strings.Repeat("A", 60)
	if got := sceneLabel(SceneHeading{Location: long}, 1); len([]rune(got)) != 40 {
		t.Errorf("label should truncate to 40 runes, got %d", len([]rune(got)))
	}
}

func TestStyleDefaulting(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	cfg := testConfig()
	cfg.Style = ""
	if err := o.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gen.lastScriptReq.Style != "cinematic thriller" {
		t.Errorf("script style should default to cinematic genre, got %q", gen.lastScriptReq.Style)
	}
}

func TestCharactersOmittedWhenUnselected(t *testing.T) {
	gen := twoSceneGenerator()
	o := newSyncOrchestrator(gen, &fakeBridge{})

	cfg := testConfig()
	cfg.Characters = nil
	if err := o.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, req := range gen.lastPromptReqs {
		if req.Characters != nil {
			t.Errorf("characters must be omitted when none selected")
		}
	}

	gen2 := twoSceneGenerator()
	o2 := newSyncOrchestrator(gen2, &fakeBridge{})
	cfg.Characters = []Character{{Name: "MARA", Role: RoleProtagonist, Description: "the planner"}}
	if err := o2.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, req := range gen2.lastPromptReqs {
		if len(req.Characters) != 1 {
			t.Errorf("selected characters should be carried, got %+v", req.Characters)
		}
	}
}
