package api

import (
	"net/http"

	"vibeboard-server/models"
	"vibeboard-server/service"

	"github.com/gin-gonic/gin"
)

// SaveSession buffers the composer's in-flight input for crash recovery. The
// write is fire-and-forget; the saver flushes on its own interval.
func SaveSession(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		Title        string   `json:"title"`
		Logline      string   `json:"logline"`
		ScriptText   string   `json:"scriptText"`
		Genre        string   `json:"genre"`
		Style        string   `json:"style"`
		CharacterIDs []string `json:"characterIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	service.Sessions.Put(models.SessionSnapshot{
		ProjectID:    projectID,
		Title:        req.Title,
		Logline:      req.Logline,
		ScriptText:   req.ScriptText,
		Genre:        req.Genre,
		Style:        req.Style,
		CharacterIDs: models.StringList(req.CharacterIDs),
	})
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "buffered": true})
}

// GetSession returns the recoverable snapshot for a project, if any.
func GetSession(c *gin.Context) {
	projectID := c.Param("project_id")
	snap, err := service.Sessions.Load(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session: " + err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recoverable session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}

// DismissSession discards the snapshot; recovery will not be offered again.
func DismissSession(c *gin.Context) {
	projectID := c.Param("project_id")
	if err := service.Sessions.Dismiss(projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dismiss session: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "dismissed": true})
}
