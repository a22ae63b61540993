//go:build wireinject
// +build wireinject

package wire

import (
	"time"

	"ganetisphere/internal/cache"
	"ganetisphere/internal/controller"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"
	"ganetisphere/internal/server"
	"ganetisphere/internal/service"
	"ganetisphere/pkg/app"
	"ganetisphere/pkg/jwt"
	"ganetisphere/pkg/log"
	"ganetisphere/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewClusterRepository,
	repository.NewVirtualMachineRepository,
	repository.NewJobRepository,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewClusterService,
)

var controllerSet = wire.NewSet(
	controller.NewSyncController,
)

var serverSet = wire.NewSet(
	server.NewControllerServer,
)

// newResyncPeriod 每个集群同步循环的周期
func newResyncPeriod(conf *viper.Viper) time.Duration {
	if s := conf.GetInt("controller.resync_period_s"); s > 0 {
		return time.Duration(s) * time.Second
	}
	return 5 * time.Minute
}

func newApp(
	controllerServer *server.ControllerServer,
) *app.App {
	return app.NewApp(
		app.WithServer(controllerServer),
		app.WithName("ganetisphere-controller"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		controllerSet,
		serverSet,
		cache.NewEngine,
		rapi.NewRegistry,
		sid.NewSid,
		jwt.NewJwt,
		newApp,
		newResyncPeriod,
	))
}
