package router

import (
	"ganetisphere/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitClusterRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// Strict permission routing group
	strictAuthRouter := r.Group("/clusters").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.GET("", deps.ClusterHandler.ListClusters)
		strictAuthRouter.POST("", deps.ClusterHandler.CreateCluster)
		strictAuthRouter.GET("/:id", deps.ClusterHandler.GetCluster)
		strictAuthRouter.PUT("/:id", deps.ClusterHandler.UpdateCluster)
		strictAuthRouter.DELETE("/:id", deps.ClusterHandler.DeleteCluster)
		strictAuthRouter.POST("/:id/refresh", deps.ClusterHandler.RefreshCluster)
		strictAuthRouter.POST("/:id/verify", deps.ClusterHandler.VerifyCluster)
		strictAuthRouter.POST("/:id/sync", deps.ClusterHandler.SyncVirtualMachines)
		strictAuthRouter.GET("/:id/orphans", deps.ClusterHandler.GetOrphans)
		strictAuthRouter.GET("/:id/quota", deps.ClusterHandler.GetQuota)
		strictAuthRouter.GET("/:id/nodes", deps.ClusterHandler.ListNodes)
		strictAuthRouter.GET("/:id/nodes/:name", deps.ClusterHandler.GetNode)
	}
}
