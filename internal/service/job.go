package service

import (
	"context"
	"fmt"
	"time"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/cache"
	"ganetisphere/internal/model"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"
	"ganetisphere/pkg/ganeti"

	"go.uber.org/zap"
)

type JobService interface {
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	GetJobByRemoteID(ctx context.Context, clusterID, jobID int64) (*model.Job, error)
	RefreshJob(ctx context.Context, id int64) (*model.Job, error)
	SweepPendingJobs(ctx context.Context) error
}

func NewJobService(
	service *Service,
	engine *cache.Engine,
	registry *rapi.Registry,
	jobRepo repository.JobRepository,
	vmRepo repository.VirtualMachineRepository,
) JobService {
	return &jobService{
		Service:  service,
		engine:   engine,
		registry: registry,
		jobRepo:  jobRepo,
		vmRepo:   vmRepo,
	}
}

type jobService struct {
	*Service
	engine   *cache.Engine
	registry *rapi.Registry
	jobRepo  repository.JobRepository
	vmRepo   repository.VirtualMachineRepository
}

// jobResource 把远端任务记录接入缓存引擎
// 任务信息不带 mtime，刷新永远走完整落库分支，状态推进不会丢
type jobResource struct {
	job    *model.Job
	client *ganeti.Client
	repo   repository.JobRepository
}

func (r *jobResource) CacheKey() string {
	return fmt.Sprintf("job:%d:%d", r.job.ClusterID, r.job.JobID)
}

func (r *jobResource) Persisted() bool {
	return r.job.Id != 0
}

func (r *jobResource) Cache() *model.ResourceCache {
	return &r.job.ResourceCache
}

func (r *jobResource) Fetch(ctx context.Context) (model.Info, error) {
	raw, err := r.client.GetJobStatus(ctx, r.job.JobID)
	if err != nil {
		return nil, err
	}
	return model.Info(raw), nil
}

func (r *jobResource) ParseTransient(info model.Info) {
	r.job.ParseCTime(info)
}

// ParsePersistent 任务进入终态后摘除实时刷新标记，恢复普通窗口策略
func (r *jobResource) ParsePersistent(info model.Info) {
	if status := info.Str("status"); status != "" {
		r.job.Status = status
	}
	if model.IsTerminalJobStatus(r.job.Status) {
		r.job.IgnoreCache = false
	}
}

func (r *jobResource) Persist(ctx context.Context) error {
	if r.job.Id == 0 {
		return r.repo.Create(ctx, r.job)
	}
	return r.repo.Update(ctx, r.job)
}

func (r *jobResource) PersistCachedAt(ctx context.Context, cachedAt time.Time) error {
	return r.repo.UpdateCachedAt(ctx, r.job.Id, cachedAt)
}

func (s *jobService) resource(ctx context.Context, job *model.Job) (*jobResource, error) {
	client, err := s.registry.GetClient(ctx, job.ClusterHash, job.ClusterID)
	if err != nil {
		return nil, err
	}
	return &jobResource{job: job, client: client, repo: s.jobRepo}, nil
}

func (s *jobService) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, v1.ErrJobNotFound
	}
	s.loadInfo(ctx, job)
	return job, nil
}

func (s *jobService) GetJobByRemoteID(ctx context.Context, clusterID, jobID int64) (*model.Job, error) {
	job, err := s.jobRepo.GetByJobID(ctx, clusterID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, v1.ErrJobNotFound
	}
	s.loadInfo(ctx, job)
	return job, nil
}

func (s *jobService) loadInfo(ctx context.Context, job *model.Job) {
	wasPending := job.IgnoreCache
	res, err := s.resource(ctx, job)
	if err != nil {
		job.Error = err.Error()
		return
	}
	s.engine.LoadInfo(ctx, res)
	s.afterRefresh(ctx, job, wasPending)
}

func (s *jobService) RefreshJob(ctx context.Context, id int64) (*model.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, v1.ErrJobNotFound
	}
	wasPending := job.IgnoreCache
	res, err := s.resource(ctx, job)
	if err != nil {
		return nil, err
	}
	s.engine.Refresh(ctx, res)
	s.afterRefresh(ctx, job, wasPending)
	return job, nil
}

// afterRefresh 任务刚进入终态时，把挂在目标虚拟机上的实时刷新标记一并摘掉
func (s *jobService) afterRefresh(ctx context.Context, job *model.Job, wasPending bool) {
	if !wasPending || job.IgnoreCache || !model.IsTerminalJobStatus(job.Status) {
		return
	}
	if job.TargetKind != model.TargetKindVM {
		return
	}
	vm, err := s.vmRepo.GetByID(ctx, job.TargetID)
	if err != nil || vm == nil {
		return
	}
	if vm.IgnoreCache && vm.LastJobID == job.Id {
		vm.IgnoreCache = false
		if err := s.vmRepo.Update(ctx, vm); err != nil {
			s.logger.WithContext(ctx).Warn("failed to clear vm refresh flag",
				zap.Int64("vm_id", vm.Id), zap.Error(err))
		}
	}
}

// SweepPendingJobs 轮询所有未完结任务，推进状态机
func (s *jobService) SweepPendingJobs(ctx context.Context) error {
	jobs, err := s.jobRepo.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if _, err := s.RefreshJob(ctx, job.Id); err != nil {
			s.logger.WithContext(ctx).Warn("pending job refresh failed",
				zap.Int64("job_id", job.Id), zap.Error(err))
		}
	}
	return nil
}
