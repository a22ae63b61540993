package router

import (
	"ganetisphere/internal/handler"
	"ganetisphere/pkg/jwt"
	"ganetisphere/pkg/log"

	"github.com/spf13/viper"
)

type RouterDeps struct {
	Logger                *log.Logger
	Config                *viper.Viper
	JWT                   *jwt.JWT
	UserHandler           *handler.UserHandler
	ClusterHandler        *handler.ClusterHandler
	VirtualMachineHandler *handler.VirtualMachineHandler
	JobHandler            *handler.JobHandler
}
