package repository

import (
	"context"
	"errors"
	"time"

	"ganetisphere/internal/model"

	"gorm.io/gorm"
)

// OwnerUsage 某个主体名下虚拟机占用的资源总量
type OwnerUsage struct {
	Ram         int64 `gorm:"column:ram"`
	DiskSize    int64 `gorm:"column:disk_size"`
	VirtualCpus int64 `gorm:"column:virtual_cpus"`
}

type VirtualMachineRepository interface {
	Create(ctx context.Context, vm *model.VirtualMachine) error
	Update(ctx context.Context, vm *model.VirtualMachine) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.VirtualMachine, error)
	GetByHostname(ctx context.Context, clusterID int64, hostname string) (*model.VirtualMachine, error)
	GetByClusterID(ctx context.Context, clusterID int64) ([]*model.VirtualMachine, error)
	// ListHostnames 返回某集群本地已持久化的实例主机名集合，供对账使用
	ListHostnames(ctx context.Context, clusterID int64) ([]string, error)
	DeleteByHostnames(ctx context.Context, clusterID int64, hostnames []string) error
	UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error
	// UpdateClusterHash 集群凭据变更后重写所有实例的冗余指纹
	UpdateClusterHash(ctx context.Context, clusterID int64, hash string) error
	// UsedResources 统计某主体名下虚拟机占用的资源（排除尚未解析的 -1 记录）
	UsedResources(ctx context.Context, ownerID int64) (*OwnerUsage, error)
}

func NewVirtualMachineRepository(r *Repository) VirtualMachineRepository {
	return &virtualMachineRepository{Repository: r}
}

type virtualMachineRepository struct {
	*Repository
}

func (r *virtualMachineRepository) Create(ctx context.Context, vm *model.VirtualMachine) error {
	return r.DB(ctx).Create(vm).Error
}

func (r *virtualMachineRepository) Update(ctx context.Context, vm *model.VirtualMachine) error {
	return r.DB(ctx).Save(vm).Error
}

func (r *virtualMachineRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.VirtualMachine{}).Error
}

func (r *virtualMachineRepository) GetByID(ctx context.Context, id int64) (*model.VirtualMachine, error) {
	var vm model.VirtualMachine
	if err := r.DB(ctx).Where("id = ?", id).First(&vm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vm, nil
}

func (r *virtualMachineRepository) GetByHostname(ctx context.Context, clusterID int64, hostname string) (*model.VirtualMachine, error) {
	var vm model.VirtualMachine
	err := r.DB(ctx).
		Where("cluster_id = ? AND hostname = ?", clusterID, hostname).
		First(&vm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

func (r *virtualMachineRepository) GetByClusterID(ctx context.Context, clusterID int64) ([]*model.VirtualMachine, error) {
	var vms []*model.VirtualMachine
	if err := r.DB(ctx).Where("cluster_id = ?", clusterID).Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *virtualMachineRepository) ListHostnames(ctx context.Context, clusterID int64) ([]string, error) {
	var hostnames []string
	err := r.DB(ctx).
		Model(&model.VirtualMachine{}).
		Where("cluster_id = ?", clusterID).
		Pluck("hostname", &hostnames).Error
	if err != nil {
		return nil, err
	}
	return hostnames, nil
}

func (r *virtualMachineRepository) DeleteByHostnames(ctx context.Context, clusterID int64, hostnames []string) error {
	if len(hostnames) == 0 {
		return nil
	}
	return r.DB(ctx).
		Where("cluster_id = ? AND hostname IN ?", clusterID, hostnames).
		Delete(&model.VirtualMachine{}).Error
}

func (r *virtualMachineRepository) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	return r.DB(ctx).
		Model(&model.VirtualMachine{}).
		Where("id = ?", id).
		Update("cached_at", cachedAt).Error
}

func (r *virtualMachineRepository) UpdateClusterHash(ctx context.Context, clusterID int64, hash string) error {
	return r.DB(ctx).
		Model(&model.VirtualMachine{}).
		Where("cluster_id = ?", clusterID).
		Update("cluster_hash", hash).Error
}

func (r *virtualMachineRepository) UsedResources(ctx context.Context, ownerID int64) (*OwnerUsage, error) {
	var usage OwnerUsage
	err := r.DB(ctx).
		Model(&model.VirtualMachine{}).
		Select("COALESCE(SUM(ram),0) as ram, COALESCE(SUM(disk_size),0) as disk_size, COALESCE(SUM(virtual_cpus),0) as virtual_cpus").
		Where("owner_id = ? AND ram != -1", ownerID).
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
