package api

import (
	"log"
	"net/http"

	"vibeboard-server/models"
	"vibeboard-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func CreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a project name is required"})
		return
	}

	project := models.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := models.CreateProject(models.GormDB, &project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func ListProjects(c *gin.Context) {
	projects, err := models.ListProjects(models.GormDB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject returns the project plus its stories and, when a pipeline run
// exists for it, the current run state.
func GetProject(c *gin.Context) {
	projectID := c.Param("project_id")

	project, err := models.GetProjectByID(models.GormDB, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + err.Error()})
		return
	}

	stories, err := models.GetStoriesByProjectID(models.GormDB, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stories: " + err.Error()})
		return
	}

	resp := gin.H{
		"project": project,
		"stories": stories,
	}
	if state, ok := service.Runs.Snapshot(projectID); ok {
		resp["pipeline"] = state
	}
	c.JSON(http.StatusOK, resp)
}

func UpdateProject(c *gin.Context) {
	projectID := c.Param("project_id")

	project, err := models.GetProjectByID(models.GormDB, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found: " + err.Error()})
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Description != "" {
		project.Description = req.Description
	}

	if err := models.UpdateProject(models.GormDB, project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DeleteProject drops the project, its stories, its session snapshot and any
// in-memory run state.
func DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")

	if err := models.DeleteProjectByID(models.GormDB, projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project: " + err.Error()})
		return
	}
	service.Runs.Clear(projectID)
	if err := service.Sessions.Dismiss(projectID); err != nil {
		log.Printf("failed to drop session buffer for project %s: %v", projectID, err)
	}

	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "deleted": true})
}
