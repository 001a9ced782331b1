package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vibeboard-server/pipeline"

	"gorm.io/gorm"
)

// Story status tags, roughly "how far did generation get".
const (
	StoryStatusDraft      = "draft"
	StoryStatusGenerating = "generating"
	StoryStatusOutline    = "outline"
	StoryStatusScript     = "script"
	StoryStatusBreakdown  = "breakdown"
	StoryStatusComplete   = "complete"
	StoryStatusExported   = "exported"
)

// JSON column wrappers. Same Valuer/Scanner pattern throughout: struct in Go,
// JSON string in MySQL.

type CharacterList []pipeline.Character

func (l CharacterList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *CharacterList) Scan(value interface{}) error { return jsonScan(value, l) }

type OutlineDoc pipeline.Outline

func (o OutlineDoc) Value() (driver.Value, error) { return jsonValue(o) }
func (o *OutlineDoc) Scan(value interface{}) error { return jsonScan(value, o) }

// Ptr returns nil when no outline has been stored yet.
func (o OutlineDoc) Ptr() *pipeline.Outline {
	if o.Acts == nil && o.Title == "" && o.Logline == "" {
		return nil
	}
	out := pipeline.Outline(o)
	return &out
}

type SceneList []pipeline.SceneBreakdown

func (l SceneList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *SceneList) Scan(value interface{}) error { return jsonScan(value, l) }

type PromptList []pipeline.ShotPrompt

func (l PromptList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *PromptList) Scan(value interface{}) error { return jsonScan(value, l) }

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonScan(value interface{}, out interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON column value: ", value))
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, out)
}

// Story is the durable record a pipeline run checkpoints into: the run config
// plus every stage artifact produced so far.
type Story struct {
	ID             string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID      string        `gorm:"index;type:varchar(64)" json:"projectId"`
	Title          string        `json:"title"`
	Mode           string        `json:"mode"`
	Concept        string        `gorm:"type:text" json:"concept"`
	ScreenplayText string        `gorm:"type:longtext" json:"screenplayText,omitempty"`
	Genre          string        `json:"genre"`
	Style          string        `json:"style"`
	Pace           string        `json:"pace"`
	TargetDuration int           `json:"targetDuration"`
	ShotDuration   int           `json:"shotDuration"`
	AllowNSFW      bool          `json:"allowNsfw"`
	Characters     CharacterList `gorm:"type:json" json:"characters"`
	Outline        OutlineDoc    `gorm:"type:json" json:"outline"`
	Script         string        `gorm:"type:longtext" json:"script,omitempty"`
	Scenes         SceneList     `gorm:"type:json" json:"scenes"`
	Prompts        PromptList    `gorm:"type:json" json:"prompts"`
	Status         string        `json:"status"`
	ExportURL      string        `json:"exportUrl,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (Story) TableName() string {
	return "story"
}

// Config rebuilds the immutable run config this story was created with.
func (s *Story) Config() pipeline.PipelineConfig {
	return pipeline.PipelineConfig{
		ProjectID:      s.ProjectID,
		StoryID:        s.ID,
		Mode:           s.Mode,
		Title:          s.Title,
		Concept:        s.Concept,
		ScreenplayText: s.ScreenplayText,
		Genre:          s.Genre,
		Style:          s.Style,
		Pace:           s.Pace,
		TargetDuration: s.TargetDuration,
		ShotDuration:   s.ShotDuration,
		AllowNSFW:      s.AllowNSFW,
		Characters:     []pipeline.Character(s.Characters),
	}
}

// Artifacts bundles whatever stage output the story already holds.
func (s *Story) Artifacts() pipeline.PartialArtifacts {
	return pipeline.PartialArtifacts{
		Outline: s.Outline.Ptr(),
		Script:  s.Script,
		Scenes:  []pipeline.SceneBreakdown(s.Scenes),
		Prompts: []pipeline.ShotPrompt(s.Prompts),
	}
}

func CreateStory(db *gorm.DB, s *Story) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StoryStatusDraft
	}
	return db.Create(s).Error
}

func GetStoryByID(db *gorm.DB, projectID, storyID string) (*Story, error) {
	var story Story
	if err := db.First(&story, "id = ? AND project_id = ?", storyID, projectID).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func GetStoriesByProjectID(db *gorm.DB, projectID string) ([]Story, error) {
	var stories []Story
	if err := db.Where("project_id = ?", projectID).Order("updated_at DESC").Find(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

func SaveStory(db *gorm.DB, s *Story) error {
	s.UpdatedAt = time.Now()
	return db.Save(s).Error
}

func UpdateStoryStatus(db *gorm.DB, storyID, status string) error {
	return db.Model(&Story{}).Where("id = ?", storyID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

func DeleteStoryByID(db *gorm.DB, projectID, storyID string) error {
	return db.Delete(&Story{}, "id = ? AND project_id = ?", storyID, projectID).Error
}
