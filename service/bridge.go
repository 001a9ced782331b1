package service

import (
	"context"
	"errors"
	"time"

	"vibeboard-server/models"
	"vibeboard-server/pipeline"

	"gorm.io/gorm"
)

// StoryBridge writes pipeline checkpoints into durable story records.
type StoryBridge struct {
	DB *gorm.DB
}

func NewStoryBridge(db *gorm.DB) *StoryBridge {
	return &StoryBridge{DB: db}
}

// SaveCheckpoint upserts the story for a run with the artifacts accumulated
// so far and the given status tag.
func (b *StoryBridge) SaveCheckpoint(ctx context.Context, cfg pipeline.PipelineConfig, state pipeline.RunState, status string) error {
	story, err := models.GetStoryByID(b.DB.WithContext(ctx), cfg.ProjectID, cfg.StoryID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		story = &models.Story{
			ID:        cfg.StoryID,
			ProjectID: cfg.ProjectID,
			CreatedAt: time.Now(),
		}
	}

	story.Title = cfg.Title
	story.Mode = cfg.Mode
	story.Concept = cfg.Concept
	story.ScreenplayText = cfg.ScreenplayText
	story.Genre = cfg.Genre
	story.Style = cfg.Style
	story.Pace = cfg.Pace
	story.TargetDuration = cfg.TargetDuration
	story.ShotDuration = cfg.ShotDuration
	story.AllowNSFW = cfg.AllowNSFW
	story.Characters = models.CharacterList(cfg.Characters)
	if state.Outline != nil {
		story.Outline = models.OutlineDoc(*state.Outline)
	}
	story.Script = state.Script
	story.Scenes = models.SceneList(state.Scenes)
	story.Prompts = models.PromptList(state.Prompts)
	story.Status = status
	story.UpdatedAt = time.Now()

	return b.DB.WithContext(ctx).Save(story).Error
}
