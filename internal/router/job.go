package router

import (
	"ganetisphere/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitJobRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// Strict permission routing group
	strictAuthRouter := r.Group("/jobs").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.GET("/:id", deps.JobHandler.GetJob)
		strictAuthRouter.POST("/:id/refresh", deps.JobHandler.RefreshJob)
	}
}
