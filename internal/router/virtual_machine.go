package router

import (
	"ganetisphere/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitVirtualMachineRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	// Console WebSocket 需要同域连接，浏览器 WebSocket 无法方便地携带 Authorization header，
	// 因此这里采用 /api/v1/vms/{id}/console 返回的短期 ws_token 鉴权，不走 StrictAuth。
	r.Group("/vms").GET("/console/ws", deps.VirtualMachineHandler.VMConsoleWS)

	// Strict permission routing group
	strictAuthRouter := r.Group("/vms").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.GET("", deps.VirtualMachineHandler.ListVirtualMachines)
		strictAuthRouter.GET("/:id", deps.VirtualMachineHandler.GetVirtualMachine)
		strictAuthRouter.POST("/:id/refresh", deps.VirtualMachineHandler.RefreshVirtualMachine)
		strictAuthRouter.PUT("/:id/owner", deps.VirtualMachineHandler.SetOwner)
		strictAuthRouter.POST("/:id/shutdown", deps.VirtualMachineHandler.ShutdownVirtualMachine)
		strictAuthRouter.POST("/:id/startup", deps.VirtualMachineHandler.StartupVirtualMachine)
		strictAuthRouter.POST("/:id/reboot", deps.VirtualMachineHandler.RebootVirtualMachine)
		strictAuthRouter.POST("/:id/console", deps.VirtualMachineHandler.GetVMConsole)
	}
}
