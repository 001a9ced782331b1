package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"vibeboard-server/models"
	"vibeboard-server/pipeline"
	"vibeboard-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type storyRequest struct {
	Title          string               `json:"title"`
	Mode           string               `json:"mode"`
	Concept        string               `json:"concept"`
	ScreenplayText string               `json:"screenplayText"`
	Genre          string               `json:"genre"`
	Style          string               `json:"style"`
	Pace           string               `json:"pace"`
	TargetDuration string               `json:"targetDuration"` // free-form, e.g. "5", "1h30m", "1:30"
	ShotDuration   int                  `json:"shotDuration"`
	AllowNSFW      bool                 `json:"allowNsfw"`
	Characters     []pipeline.Character `json:"characters"`
}

func (r storyRequest) targetSeconds() int {
	secs, ok := pipeline.ParseDuration(r.TargetDuration)
	if !ok {
		return 0
	}
	return secs
}

// CreateStory persists a draft story record for a project.
func CreateStory(c *gin.Context) {
	projectID := c.Param("project_id")
	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
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
		Status:         models.StoryStatusDraft,
	}
	if err := models.CreateStory(models.GormDB, &story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create story: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

func ListStories(c *gin.Context) {
	projectID := c.Param("project_id")
	stories, err := models.GetStoriesByProjectID(models.GormDB, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stories: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id": projectID,
		"stories":    stories,
		"total":      len(stories),
	})
}

func GetStory(c *gin.Context) {
	projectID := c.Param("project_id")
	storyID := c.Param("story_id")
	story, err := models.GetStoryByID(models.GormDB, projectID, storyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": story})
}

// UpdateStory edits draft fields. Generated artifacts are never patched here;
// regeneration replaces them through the pipeline.
func UpdateStory(c *gin.Context) {
	projectID := c.Param("project_id")
	storyID := c.Param("story_id")

	story, err := models.GetStoryByID(models.GormDB, projectID, storyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found: " + err.Error()})
		return
	}

	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != "" {
		story.Title = req.Title
	}
	if req.Concept != "" {
		story.Concept = req.Concept
	}
	if req.ScreenplayText != "" {
		story.ScreenplayText = req.ScreenplayText
	}
	if req.Genre != "" {
		story.Genre = req.Genre
	}
	if req.Style != "" {
		story.Style = req.Style
	}
	if req.Pace != "" {
		story.Pace = req.Pace
	}
	if req.TargetDuration != "" {
		story.TargetDuration = req.targetSeconds()
	}
	if req.ShotDuration > 0 {
		story.ShotDuration = req.ShotDuration
	}
	if req.Characters != nil {
		story.Characters = models.CharacterList(req.Characters)
	}

	if err := models.SaveStory(models.GormDB, story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update story: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": story})
}

func DeleteStory(c *gin.Context) {
	projectID := c.Param("project_id")
	storyID := c.Param("story_id")
	if err := models.DeleteStoryByID(models.GormDB, projectID, storyID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete story: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"story_id": storyID, "deleted": true})
}

// ExportStory bundles the story record with all its artifacts into a JSON
// object on object storage and marks the story exported.
func ExportStory(c *gin.Context) {
	projectID := c.Param("project_id")
	storyID := c.Param("story_id")

	story, err := models.GetStoryByID(models.GormDB, projectID, storyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found: " + err.Error()})
		return
	}

	bundle, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode story: " + err.Error()})
		return
	}

	url, err := service.UploadStoryExport(story.ID, bundle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload export: " + err.Error()})
		return
	}

	story.ExportURL = url
	story.Status = models.StoryStatusExported
	if err := models.SaveStory(models.GormDB, story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save export url: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"story_id":   story.ID,
		"export_url": url,
	})
}

// UploadScreenplay accepts a screenplay file upload, archives it and returns
// its text for the screenplay entry point.
func UploadScreenplay(c *gin.Context) {
	projectID := c.Param("project_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file: " + err.Error()})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload: " + err.Error()})
		return
	}
	defer f.Close()

	text, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload: " + err.Error()})
		return
	}

	url, err := service.UploadScreenplay(projectID, fileHeader.Filename, bytes.NewReader(text), int64(len(text)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive screenplay: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id": projectID,
		"url":        url,
		"text":       string(text),
	})
}
