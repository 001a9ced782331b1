package pipeline

// Input mode for a pipeline run. A run is driven either from a short concept
// or from a screenplay the user already has; the two modes share the
// breakdown/prompts tail.
const (
	ModeConcept    = "concept"
	ModeScreenplay = "screenplay"
)

const (
	PaceSlow   = "slow"
	PaceMedium = "medium"
	PaceFast   = "fast"
)

const (
	RoleProtagonist = "protagonist"
	RoleAntagonist  = "antagonist"
	RoleSupporting  = "supporting"
	RoleMinor       = "minor"
)

// Genres the generation backend knows how to work with.
var Genres = []string{
	"action", "adventure", "comedy", "drama", "fantasy", "horror",
	"mystery", "romance", "scifi", "thriller", "western", "documentary",
}

func ValidGenre(g string) bool {
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// DefaultShotDuration is used when the config leaves the per-shot duration unset.
const DefaultShotDuration = 5

// Character is a cast entry carried with the run config. ElementID is a weak
// reference into the project element library; the element may be deleted
// independently.
type Character struct {
	Name           string `json:"name"`
	ElementID      string `json:"elementId,omitempty"`
	ModelID        string `json:"modelId,omitempty"`
	TriggerWord    string `json:"triggerWord,omitempty"`
	Description    string `json:"description"`
	ReferenceImage string `json:"referenceImage,omitempty"`
	Role           string `json:"role"`
}

// PipelineConfig is immutable per run; a new run gets a new config.
type PipelineConfig struct {
	ProjectID      string      `json:"projectId"`
	StoryID        string      `json:"storyId"`
	Mode           string      `json:"mode"`
	Title          string      `json:"title"`
	Concept        string      `json:"concept"`
	ScreenplayText string      `json:"screenplayText"`
	Genre          string      `json:"genre"`
	Style          string      `json:"style"`
	Pace           string      `json:"pace"`
	TargetDuration int         `json:"targetDuration"` // seconds, 0 = auto
	ShotDuration   int         `json:"shotDuration"`   // seconds per shot
	AllowNSFW      bool        `json:"allowNsfw"`
	Characters     []Character `json:"characters,omitempty"`
}

// EffectiveStyle falls back to a cinematic rendering of the genre when the
// user supplied no style.
func (c PipelineConfig) EffectiveStyle() string {
	if c.Style != "" {
		return c.Style
	}
	return "cinematic " + c.Genre
}

// EffectiveShotDuration never returns zero.
func (c PipelineConfig) EffectiveShotDuration() int {
	if c.ShotDuration > 0 {
		return c.ShotDuration
	}
	return DefaultShotDuration
}

type OutlineCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role"`
}

type OutlineBeat struct {
	Type              string `json:"type"`
	Description       string `json:"description"`
	EmotionalTone     string `json:"emotionalTone"`
	EstimatedDuration int    `json:"estimatedDuration"`
}

type OutlineAct struct {
	Number int           `json:"number"`
	Title  string        `json:"title"`
	Beats  []OutlineBeat `json:"beats"`
}

type Outline struct {
	Title      string             `json:"title"`
	Logline    string             `json:"logline"`
	Characters []OutlineCharacter `json:"characters"`
	Acts       []OutlineAct       `json:"acts"`
	Themes     []string           `json:"themes"`
}

// SceneHeading mirrors a screenplay slugline.
type SceneHeading struct {
	IntExt    string `json:"intExt"`
	Location  string `json:"location"`
	TimeOfDay string `json:"timeOfDay"`
}

// ParsedScript is the index-aligned result of the script parse call.
type ParsedScript struct {
	Scenes     []SceneHeading `json:"scenes"`
	SceneTexts []string       `json:"sceneTexts"`
}

// Shot is one planned camera unit. ShotNumber increases across the whole
// breakdown, not per scene.
type Shot struct {
	ShotNumber  int    `json:"shotNumber"`
	Description string `json:"description"`
	Camera      string `json:"camera"`
	Lighting    string `json:"lighting"`
	Duration    int    `json:"duration"`
}

// SceneBreakdown is immutable once produced; regeneration replaces the whole
// scene list.
type SceneBreakdown struct {
	SceneNumber   int          `json:"sceneNumber"`
	Heading       SceneHeading `json:"heading"`
	Description   string       `json:"description"`
	EmotionalBeat string       `json:"emotionalBeat"`
	Characters    []string     `json:"characters"`
	Shots         []Shot       `json:"shots"`
}

// ShotPrompt correlates to a Shot by ShotNumber. The prompt total may be less
// than the shot total when scenes contribute nothing.
type ShotPrompt struct {
	ShotNumber     int    `json:"shotNumber"`
	FirstFrame     string `json:"firstFrame"`
	LastFrame      string `json:"lastFrame,omitempty"`
	VideoPrompt    string `json:"videoPrompt"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	Duration       int    `json:"duration"`
	Style          string `json:"style,omitempty"`
	Camera         string `json:"camera,omitempty"`
}

// PartialArtifacts carries whatever a previously saved story already has;
// ContinueFrom resumes at the first missing piece.
type PartialArtifacts struct {
	Outline *Outline         `json:"outline,omitempty"`
	Script  string           `json:"script,omitempty"`
	Scenes  []SceneBreakdown `json:"scenes,omitempty"`
	Prompts []ShotPrompt     `json:"prompts,omitempty"`
}

// ProgressInfo describes the item the run is working through inside a stage.
type ProgressInfo struct {
	Stage   Stage  `json:"stage"`
	Current int    `json:"current"` // 1-based
	Total   int    `json:"total"`
	Label   string `json:"label"`
}
