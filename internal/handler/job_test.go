package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ganetisphere/internal/handler"
	"ganetisphere/internal/model"
	"ganetisphere/internal/router"
	"ganetisphere/pkg/jwt"
	"ganetisphere/pkg/log"
	mock_service "ganetisphere/test/mocks/service"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func setupJobRouter(t *testing.T, jobService *mock_service.MockJobService) (*httptest.Server, *jwt.JWT) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := viper.New()
	conf.Set("security.jwt.key", "test-signing-key")
	j := jwt.NewJwt(conf)
	logger := &log.Logger{Logger: zap.NewNop()}

	deps := router.RouterDeps{
		Logger:     logger,
		JWT:        j,
		JobHandler: handler.NewJobHandler(handler.NewHandler(logger), jobService),
	}
	engine := gin.New()
	router.InitJobRouter(deps, engine.Group("/api/v1"))

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server, j
}

func bearerToken(t *testing.T, j *jwt.JWT) string {
	t.Helper()
	token, err := j.GenToken("user-1", time.Now().Add(time.Hour))
	assert.NoError(t, err)
	return "Bearer " + token
}

func TestGetJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobService := mock_service.NewMockJobService(ctrl)
	cachedAt := time.Now()
	jobService.EXPECT().GetJob(gomock.Any(), int64(1)).Return(&model.Job{
		Id:         1,
		JobID:      7,
		ClusterID:  1,
		TargetKind: model.TargetKindVM,
		TargetID:   2,
		Status:     model.JobStatusSuccess,
		ResourceCache: model.ResourceCache{
			CachedAt: &cachedAt,
		},
	}, nil)

	server, j := setupJobRouter(t, jobService)
	e := httpexpect.Default(t, server.URL)

	obj := e.GET("/api/v1/jobs/1").
		WithHeader("Authorization", bearerToken(t, j)).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	obj.Value("code").IsEqual(0)
	data := obj.Value("data").Object()
	data.Value("jobId").IsEqual(7)
	data.Value("status").IsEqual("success")
	data.Value("finished").IsEqual(true)
}

func TestGetJobUnauthorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, _ := setupJobRouter(t, mock_service.NewMockJobService(ctrl))
	e := httpexpect.Default(t, server.URL)

	e.GET("/api/v1/jobs/1").
		Expect().
		Status(http.StatusUnauthorized)
}

func TestRefreshJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobService := mock_service.NewMockJobService(ctrl)
	jobService.EXPECT().RefreshJob(gomock.Any(), int64(3)).Return(&model.Job{
		Id:        3,
		JobID:     9,
		ClusterID: 1,
		Status:    model.JobStatusRunning,
	}, nil)

	server, j := setupJobRouter(t, jobService)
	e := httpexpect.Default(t, server.URL)

	obj := e.POST("/api/v1/jobs/3/refresh").
		WithHeader("Authorization", bearerToken(t, j)).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	data := obj.Value("data").Object()
	data.Value("status").IsEqual("running")
	data.Value("finished").IsEqual(false)
}

func TestGetJobBadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server, j := setupJobRouter(t, mock_service.NewMockJobService(ctrl))
	e := httpexpect.Default(t, server.URL)

	e.GET("/api/v1/jobs/not-a-number").
		WithHeader("Authorization", bearerToken(t, j)).
		Expect().
		Status(http.StatusBadRequest)
}
