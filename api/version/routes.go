package version

import (
	"github.com/drumscribe/drumscribe-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers version routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	engine.GET("/", Get())
}
