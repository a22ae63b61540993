package router

import (
	"ganetisphere/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitUserRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// 无鉴权路由
	noAuthRouter := r.Group("/")
	{
		noAuthRouter.POST("/register", deps.UserHandler.Register)
		noAuthRouter.POST("/login", deps.UserHandler.Login)
	}

	// Strict permission routing group
	strictAuthRouter := r.Group("/").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.GET("/user", deps.UserHandler.GetProfile)
		strictAuthRouter.PUT("/user", deps.UserHandler.UpdateProfile)
		strictAuthRouter.GET("/owners", deps.UserHandler.ListOwners)
	}
}
