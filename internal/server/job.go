package server

import (
	"context"
	"time"

	"ganetisphere/internal/service"
	"ganetisphere/pkg/log"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// JobServer 定时扫描未完结任务，驱动状态机向终态推进
// 即使没有任何客户端访问，pending 任务也不会停在原地
type JobServer struct {
	log        *log.Logger
	jobService service.JobService
	scheduler  *gocron.Scheduler
}

func NewJobServer(
	log *log.Logger,
	jobService service.JobService,
) *JobServer {
	return &JobServer{
		log:        log,
		jobService: jobService,
	}
}

func (j *JobServer) Start(ctx context.Context) error {
	gocron.SetPanicHandler(func(jobName string, recoverData interface{}) {
		j.log.Error("job panic", zap.String("job", jobName), zap.Any("recover", recoverData))
	})

	j.scheduler = gocron.NewScheduler(time.UTC)

	_, err := j.scheduler.Every(15).Seconds().Do(func() {
		if err := j.jobService.SweepPendingJobs(ctx); err != nil {
			j.log.Error("pending job sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		j.log.Error("failed to schedule pending job sweep", zap.Error(err))
		return err
	}

	j.scheduler.StartBlocking()
	return nil
}

func (j *JobServer) Stop(ctx context.Context) error {
	j.scheduler.Stop()
	j.log.Info("job server stopped")
	return nil
}
