package health

import (
	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers health check routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	engine.GET("/health", Get(deps))
}
