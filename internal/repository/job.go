package repository

import (
	"context"
	"errors"
	"time"

	"ganetisphere/internal/model"

	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	Update(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id int64) (*model.Job, error)
	GetByJobID(ctx context.Context, clusterID, jobID int64) (*model.Job, error)
	// ListPending 返回所有仍在绕过缓存的（未进入终态的）任务
	ListPending(ctx context.Context) ([]*model.Job, error)
	UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error
	UpdateIgnoreCache(ctx context.Context, id int64, ignoreCache bool) error
	UpdateClusterHash(ctx context.Context, clusterID int64, hash string) error
}

func NewJobRepository(r *Repository) JobRepository {
	return &jobRepository{Repository: r}
}

type jobRepository struct {
	*Repository
}

func (r *jobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.DB(ctx).Create(job).Error
}

func (r *jobRepository) Update(ctx context.Context, job *model.Job) error {
	return r.DB(ctx).Save(job).Error
}

func (r *jobRepository) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	var job model.Job
	if err := r.DB(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) GetByJobID(ctx context.Context, clusterID, jobID int64) (*model.Job, error) {
	var job model.Job
	err := r.DB(ctx).
		Where("cluster_id = ? AND job_id = ?", clusterID, jobID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ListPending(ctx context.Context) ([]*model.Job, error) {
	var jobs []*model.Job
	if err := r.DB(ctx).Where("ignore_cache = ?", true).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	return r.DB(ctx).
		Model(&model.Job{}).
		Where("id = ?", id).
		Update("cached_at", cachedAt).Error
}

func (r *jobRepository) UpdateIgnoreCache(ctx context.Context, id int64, ignoreCache bool) error {
	return r.DB(ctx).
		Model(&model.Job{}).
		Where("id = ?", id).
		Update("ignore_cache", ignoreCache).Error
}

func (r *jobRepository) UpdateClusterHash(ctx context.Context, clusterID int64, hash string) error {
	return r.DB(ctx).
		Model(&model.Job{}).
		Where("cluster_id = ?", clusterID).
		Update("cluster_hash", hash).Error
}
