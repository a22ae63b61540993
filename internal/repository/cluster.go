package repository

import (
	"context"
	"errors"
	"time"

	"ganetisphere/internal/model"

	"gorm.io/gorm"
)

// ClusterCredentials 构建客户端所需的当前凭据，配合指纹做陈旧凭据防护
type ClusterCredentials struct {
	Hash     string `gorm:"column:hash"`
	Hostname string `gorm:"column:hostname"`
	Port     int    `gorm:"column:port"`
	Username string `gorm:"column:username"`
	Password string `gorm:"column:password"`
}

type ClusterRepository interface {
	Create(ctx context.Context, cluster *model.Cluster) error
	Update(ctx context.Context, cluster *model.Cluster) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Cluster, error)
	GetBySlug(ctx context.Context, slug string) (*model.Cluster, error)
	GetByHostname(ctx context.Context, hostname string) (*model.Cluster, error)
	GetAllEnabled(ctx context.Context) ([]*model.Cluster, error)
	ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Cluster, int64, error)
	// GetCredentials 只取连接凭据列，避免为取凭据实例化完整记录
	GetCredentials(ctx context.Context, id int64) (*ClusterCredentials, error)
	UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error
	// UpdateColumns 通用列更新，缓存/控制列会被拒绝
	UpdateColumns(ctx context.Context, id int64, columns map[string]interface{}) error
}

func NewClusterRepository(r *Repository) ClusterRepository {
	return &clusterRepository{Repository: r}
}

type clusterRepository struct {
	*Repository
}

func (r *clusterRepository) Create(ctx context.Context, cluster *model.Cluster) error {
	return r.DB(ctx).Create(cluster).Error
}

func (r *clusterRepository) Update(ctx context.Context, cluster *model.Cluster) error {
	return r.DB(ctx).Save(cluster).Error
}

func (r *clusterRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.Cluster{}).Error
}

func (r *clusterRepository) GetByID(ctx context.Context, id int64) (*model.Cluster, error) {
	var cluster model.Cluster
	if err := r.DB(ctx).Where("id = ?", id).First(&cluster).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

func (r *clusterRepository) GetBySlug(ctx context.Context, slug string) (*model.Cluster, error) {
	var cluster model.Cluster
	if err := r.DB(ctx).Where("slug = ?", slug).First(&cluster).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

func (r *clusterRepository) GetByHostname(ctx context.Context, hostname string) (*model.Cluster, error) {
	var cluster model.Cluster
	if err := r.DB(ctx).Where("hostname = ?", hostname).First(&cluster).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

func (r *clusterRepository) GetAllEnabled(ctx context.Context) ([]*model.Cluster, error) {
	var clusters []*model.Cluster
	if err := r.DB(ctx).Where("is_enabled = ?", 1).Find(&clusters).Error; err != nil {
		return nil, err
	}
	return clusters, nil
}

func (r *clusterRepository) ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Cluster, int64, error) {
	var clusters []*model.Cluster
	var total int64

	query := r.DB(ctx).Model(&model.Cluster{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("id DESC").Find(&clusters).Error; err != nil {
		return nil, 0, err
	}

	return clusters, total, nil
}

func (r *clusterRepository) GetCredentials(ctx context.Context, id int64) (*ClusterCredentials, error) {
	var creds ClusterCredentials
	err := r.DB(ctx).
		Table("ganeti_cluster").
		Select("hash, hostname, port, username, password").
		Where("id = ?", id).
		First(&creds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

func (r *clusterRepository) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	return r.DB(ctx).
		Model(&model.Cluster{}).
		Where("id = ?", id).
		Update("cached_at", cachedAt).Error
}

func (r *clusterRepository) UpdateColumns(ctx context.Context, id int64, columns map[string]interface{}) error {
	if err := checkReservedColumns(columns); err != nil {
		return err
	}
	return r.DB(ctx).
		Model(&model.Cluster{}).
		Where("id = ?", id).
		Updates(columns).Error
}
