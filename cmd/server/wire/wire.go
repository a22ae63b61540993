//go:build wireinject
// +build wireinject

package wire

import (
	"ganetisphere/internal/cache"
	"ganetisphere/internal/handler"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"
	"ganetisphere/internal/router"
	"ganetisphere/internal/server"
	"ganetisphere/internal/service"
	"ganetisphere/pkg/app"
	"ganetisphere/pkg/jwt"
	"ganetisphere/pkg/log"
	"ganetisphere/pkg/server/http"
	"ganetisphere/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewUserRepository,
	repository.NewClusterUserRepository,
	repository.NewClusterRepository,
	repository.NewVirtualMachineRepository,
	repository.NewJobRepository,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewUserService,
	service.NewClusterService,
	service.NewVirtualMachineService,
	service.NewJobService,
	service.NewConsoleService,
)

var handlerSet = wire.NewSet(
	handler.NewHandler,
	handler.NewUserHandler,
	handler.NewClusterHandler,
	handler.NewVirtualMachineHandler,
	handler.NewJobHandler,
)

var serverSet = wire.NewSet(
	server.NewHTTPServer,
	server.NewJobServer,
)

// build App
func newApp(
	httpServer *http.Server,
	jobServer *server.JobServer,
) *app.App {
	return app.NewApp(
		app.WithServer(httpServer, jobServer),
		app.WithName("ganetisphere-server"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		handlerSet,
		serverSet,
		cache.NewEngine,
		rapi.NewRegistry,
		wire.Struct(new(router.RouterDeps), "*"),
		sid.NewSid,
		jwt.NewJwt,
		newApp,
	))
}
