package routers

import (
	"vibeboard-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", api.CreateProject)
		v1.GET("/projects", api.ListProjects)
		v1.GET("/projects/:project_id", api.GetProject)
		v1.PUT("/projects/:project_id", api.UpdateProject)
		v1.DELETE("/projects/:project_id", api.DeleteProject)

		v1.POST("/projects/:project_id/stories", api.CreateStory)
		v1.GET("/projects/:project_id/stories", api.ListStories)
		v1.GET("/projects/:project_id/stories/:story_id", api.GetStory)
		v1.PUT("/projects/:project_id/stories/:story_id", api.UpdateStory)
		v1.DELETE("/projects/:project_id/stories/:story_id", api.DeleteStory)
		v1.POST("/projects/:project_id/stories/:story_id/export", api.ExportStory)
		v1.POST("/projects/:project_id/screenplay", api.UploadScreenplay)

		v1.POST("/projects/:project_id/pipeline/start", api.StartPipeline)
		v1.POST("/projects/:project_id/pipeline/start-script", api.StartPipelineFromScript)
		v1.POST("/projects/:project_id/pipeline/continue", api.ContinuePipeline)
		v1.GET("/projects/:project_id/pipeline", api.GetPipelineState)

		v1.PUT("/projects/:project_id/session", api.SaveSession)
		v1.GET("/projects/:project_id/session", api.GetSession)
		v1.DELETE("/projects/:project_id/session", api.DismissSession)
	}
	r.GET("/projects/:project_id/pipeline/wss", api.PipelineProgressWebSocket)
	return r
}
