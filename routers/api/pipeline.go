package api

import (
	"errors"
	"log"
	"net/http"

	"vibeboard-server/models"
	"vibeboard-server/pipeline"
	"vibeboard-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type startRequest struct {
	StoryID string `json:"storyId"`
	storyRequest
}

// buildConfig resolves the run config: from a saved story when storyId is
// given, otherwise from the inline fields (creating a draft story record so
// checkpoints have somewhere to land).
func buildConfig(c *gin.Context, projectID string, req startRequest) (pipeline.PipelineConfig, bool) {
	if req.StoryID != "" {
		story, err := models.GetStoryByID(models.GormDB, projectID, req.StoryID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "story not found: " + err.Error()})
			return pipeline.PipelineConfig{}, false
		}
		cfg := story.Config()
		return cfg, true
	}

	story := models.Story{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		Title:          req.Title,
		Mode:           req.Mode,
		Concept:        req.Concept,
		ScreenplayText: req.ScreenplayText,
		Genre:          req.Genre,
		Style:          req.Style,
		Pace:           req.Pace,
		TargetDuration: req.targetSeconds(),
		ShotDuration:   req.ShotDuration,
		AllowNSFW:      req.AllowNSFW,
		Characters:     models.CharacterList(req.Characters),
		Status:         models.StoryStatusGenerating,
	}
	if err := models.CreateStory(models.GormDB, &story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create story: " + err.Error()})
		return pipeline.PipelineConfig{}, false
	}
	return story.Config(), true
}

func respondToStartError(c *gin.Context, err error) {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start pipeline: " + err.Error()})
}

// StartPipeline launches a generation run from a concept. Returns before
// generation finishes; observe progress via GET or the websocket.
func StartPipeline(c *gin.Context) {
	projectID := c.Param("project_id")
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, ok := buildConfig(c, projectID, req)
	if !ok {
		return
	}
	if err := service.Orch.Start(cfg); err != nil {
		respondToStartError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"project_id": projectID,
		"story_id":   cfg.StoryID,
		"message":    "pipeline run started",
	})
}

// StartPipelineFromScript launches a run from an existing screenplay; outline
// and script stages are marked complete as supplied.
func StartPipelineFromScript(c *gin.Context) {
	projectID := c.Param("project_id")
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, ok := buildConfig(c, projectID, req)
	if !ok {
		return
	}
	if err := service.Orch.StartFromScript(cfg); err != nil {
		respondToStartError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"project_id": projectID,
		"story_id":   cfg.StoryID,
		"message":    "pipeline run started from screenplay",
	})
}

// ContinuePipeline resumes a saved, partially generated story at its first
// missing artifact.
func ContinuePipeline(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		StoryID string `json:"storyId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, err := models.GetStoryByID(models.GormDB, projectID, req.StoryID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found: " + err.Error()})
		return
	}

	if err := service.Orch.ContinueFrom(story.Config(), story.Artifacts()); err != nil {
		respondToStartError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"project_id": projectID,
		"story_id":   story.ID,
		"message":    "pipeline continuation started",
	})
}

// GetPipelineState reads the current run snapshot for a project.
func GetPipelineState(c *gin.Context) {
	projectID := c.Param("project_id")
	state, ok := service.Runs.Snapshot(projectID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pipeline run for project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": state})
}

// PipelineProgressWebSocket streams run state mutations for one project. On
// connect the current snapshot is sent, so a view that navigated away and
// back picks up mid-run (or sees the finished result) before any delta.
func PipelineProgressWebSocket(c *gin.Context) {
	projectID := c.Param("project_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "websocket upgrade failed"})
		return
	}
	defer conn.Close()

	state, ok := service.Runs.Snapshot(projectID)
	if !ok {
		_ = conn.WriteJSON(gin.H{"error": "no pipeline run for project"})
		return
	}
	if err := conn.WriteJSON(state); err != nil {
		return
	}

	// The registry listener must not block the run; buffer and drop under
	// pressure, the next update supersedes anything missed anyway.
	updates := make(chan pipeline.RunState, 64)
	cancel := service.Runs.Subscribe(func(s pipeline.RunState) {
		if s.ProjectID != projectID {
			return
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer cancel()

	if done(state) {
		return
	}
	for s := range updates {
		if err := conn.WriteJSON(s); err != nil {
			log.Printf("websocket write for project %s failed: %v", projectID, err)
			return
		}
		if done(s) {
			return
		}
	}
}

func done(s pipeline.RunState) bool {
	if s.Finished() {
		return true
	}
	_, failed := s.Failed()
	return failed && !s.IsRunning
}
