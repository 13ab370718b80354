package jobs

import (
	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers transcription job routes on the given group
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("", CreateUploadJob(deps))
	group.POST("/youtube", CreateYouTubeJob(deps))
	group.GET("/:id", GetJob(deps))
	group.GET("/:id/events", GetEvents(deps))
	group.GET("/:id/clusters", GetClusters(deps))
	group.PUT("/:id/clusters", RelabelClusters(deps))
	group.GET("/:id/midi", GetMIDI(deps))
	group.POST("/:id/retry", RetryJob(deps))
	group.DELETE("/:id", CancelJob(deps))
}
