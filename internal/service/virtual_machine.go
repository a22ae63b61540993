package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/cache"
	"ganetisphere/internal/model"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"
	"ganetisphere/pkg/ganeti"

	"go.uber.org/zap"
)

type VirtualMachineService interface {
	GetVirtualMachine(ctx context.Context, id int64) (*model.VirtualMachine, error)
	GetVirtualMachineByHostname(ctx context.Context, clusterID int64, hostname string) (*model.VirtualMachine, error)
	ListVirtualMachines(ctx context.Context, clusterID int64) ([]*model.VirtualMachine, error)
	RefreshVirtualMachine(ctx context.Context, id int64) (*model.VirtualMachine, error)
	SetOwner(ctx context.Context, id int64, ownerID int64) error
	Shutdown(ctx context.Context, id int64) (*model.Job, error)
	Startup(ctx context.Context, id int64) (*model.Job, error)
	Reboot(ctx context.Context, id int64) (*model.Job, error)
}

func NewVirtualMachineService(
	service *Service,
	engine *cache.Engine,
	registry *rapi.Registry,
	vmRepo repository.VirtualMachineRepository,
	clusterRepo repository.ClusterRepository,
	jobRepo repository.JobRepository,
) VirtualMachineService {
	return &virtualMachineService{
		Service:     service,
		engine:      engine,
		registry:    registry,
		vmRepo:      vmRepo,
		clusterRepo: clusterRepo,
		jobRepo:     jobRepo,
	}
}

type virtualMachineService struct {
	*Service
	engine      *cache.Engine
	registry    *rapi.Registry
	vmRepo      repository.VirtualMachineRepository
	clusterRepo repository.ClusterRepository
	jobRepo     repository.JobRepository
}

// vmResource 把虚拟机记录接入缓存引擎
// 持久化前会把远端实例的归属标签校正到和本地 owner_id 一致
type vmResource struct {
	vm     *model.VirtualMachine
	client *ganeti.Client
	repo   repository.VirtualMachineRepository
}

func (r *vmResource) CacheKey() string {
	return fmt.Sprintf("vm:%d:%s", r.vm.ClusterID, r.vm.Hostname)
}

func (r *vmResource) Persisted() bool {
	return r.vm.Id != 0
}

func (r *vmResource) Cache() *model.ResourceCache {
	return &r.vm.ResourceCache
}

func (r *vmResource) Fetch(ctx context.Context) (model.Info, error) {
	raw, err := r.client.GetInstance(ctx, r.vm.Hostname)
	if err != nil {
		return nil, err
	}
	return model.Info(raw), nil
}

func (r *vmResource) ParseTransient(info model.Info) {
	r.vm.ParseCTime(info)
	r.vm.Status = info.Str("status")
}

func (r *vmResource) ParsePersistent(info model.Info) {
	if be := info.Section("beparams"); be != nil {
		r.vm.Ram = be.Int("memory")
		r.vm.VirtualCpus = be.Int("vcpus")
	}
	if sizes := info.Ints("disk.sizes"); sizes != nil {
		var total int64
		for _, size := range sizes {
			total += size
		}
		r.vm.DiskSize = total
	}
	if os := info.Str("os"); os != "" {
		r.vm.OperatingSystem = os
	}
}

func (r *vmResource) Persist(ctx context.Context) error {
	if info := r.vm.Info(); info != nil {
		changed, err := r.reconcileOwnerTag(ctx, info)
		if err != nil {
			return err
		}
		if changed {
			// 标签改动要回写到落库的 info，否则下次加载又会触发校正
			r.vm.SetInfo(info)
			if err := r.vm.EncodeInfo(); err != nil {
				return err
			}
		}
	}
	if r.vm.Id == 0 {
		return r.repo.Create(ctx, r.vm)
	}
	return r.repo.Update(ctx, r.vm)
}

func (r *vmResource) PersistCachedAt(ctx context.Context, cachedAt time.Time) error {
	return r.repo.UpdateCachedAt(ctx, r.vm.Id, cachedAt)
}

// reconcileOwnerTag 校正远端实例的归属标签
// 归属前缀下最多存在一个标签且必须指向当前 owner_id：
// 先删掉所有指向其它归属者的标签，再补上缺失的当前归属标签，
// 两步各自最多一次远端调用，并同步更新内存里的标签镜像
func (r *vmResource) reconcileOwnerTag(ctx context.Context, info model.Info) (bool, error) {
	tags := info.Tags()
	want := ""
	if r.vm.OwnerID > 0 {
		want = fmt.Sprintf("%s%d", model.OwnerTagPrefix, r.vm.OwnerID)
	}

	var stale []string
	found := false
	for _, tag := range tags {
		if !strings.HasPrefix(tag, model.OwnerTagPrefix) {
			continue
		}
		if tag == want {
			found = true
			continue
		}
		stale = append(stale, tag)
	}

	changed := false
	if len(stale) > 0 {
		if _, err := r.client.DeleteInstanceTags(ctx, r.vm.Hostname, stale); err != nil {
			return changed, err
		}
		staleSet := make(map[string]struct{}, len(stale))
		for _, s := range stale {
			staleSet[s] = struct{}{}
		}
		kept := make([]string, 0, len(tags))
		for _, tag := range tags {
			if _, ok := staleSet[tag]; !ok {
				kept = append(kept, tag)
			}
		}
		tags = kept
		info.SetTags(tags)
		changed = true
	}

	if want != "" && !found {
		if _, err := r.client.AddInstanceTags(ctx, r.vm.Hostname, []string{want}); err != nil {
			return changed, err
		}
		info.SetTags(append(tags, want))
		changed = true
	}
	return changed, nil
}

func (s *virtualMachineService) resource(ctx context.Context, vm *model.VirtualMachine) (*vmResource, error) {
	client, err := s.registry.GetClient(ctx, vm.ClusterHash, vm.ClusterID)
	if err != nil {
		return nil, err
	}
	return &vmResource{vm: vm, client: client, repo: s.vmRepo}, nil
}

func (s *virtualMachineService) GetVirtualMachine(ctx context.Context, id int64) (*model.VirtualMachine, error) {
	vm, err := s.vmRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, v1.ErrVMNotFound
	}
	s.loadInfo(ctx, vm)
	return vm, nil
}

func (s *virtualMachineService) GetVirtualMachineByHostname(ctx context.Context, clusterID int64, hostname string) (*model.VirtualMachine, error) {
	vm, err := s.vmRepo.GetByHostname(ctx, clusterID, hostname)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, v1.ErrVMNotFound
	}
	s.loadInfo(ctx, vm)
	return vm, nil
}

func (s *virtualMachineService) loadInfo(ctx context.Context, vm *model.VirtualMachine) {
	res, err := s.resource(ctx, vm)
	if err != nil {
		vm.Error = err.Error()
		return
	}
	s.engine.LoadInfo(ctx, res)
}

func (s *virtualMachineService) ListVirtualMachines(ctx context.Context, clusterID int64) ([]*model.VirtualMachine, error) {
	vms, err := s.vmRepo.GetByClusterID(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	// 列表页不触发远端刷新
	for _, vm := range vms {
		if info := vm.Info(); info != nil {
			vm.ParseCTime(info)
			vm.Status = info.Str("status")
		}
	}
	return vms, nil
}

func (s *virtualMachineService) RefreshVirtualMachine(ctx context.Context, id int64) (*model.VirtualMachine, error) {
	vm, err := s.vmRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, v1.ErrVMNotFound
	}
	res, err := s.resource(ctx, vm)
	if err != nil {
		return nil, err
	}
	s.engine.Refresh(ctx, res)
	return vm, nil
}

// SetOwner 变更归属并做配额预检，远端标签随下一次持久化校正
func (s *virtualMachineService) SetOwner(ctx context.Context, id int64, ownerID int64) error {
	vm, err := s.vmRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if vm == nil {
		return v1.ErrVMNotFound
	}

	if ownerID > 0 {
		if err := s.checkQuota(ctx, vm, ownerID); err != nil {
			return err
		}
	}

	vm.OwnerID = ownerID
	res, err := s.resource(ctx, vm)
	if err != nil {
		return err
	}
	if vm.Info() == nil {
		// 尚无缓存信息时无法校正标签，先落库归属，标签随首次刷新补齐
		return s.vmRepo.Update(ctx, vm)
	}
	return s.engine.Save(ctx, res)
}

func (s *virtualMachineService) checkQuota(ctx context.Context, vm *model.VirtualMachine, ownerID int64) error {
	cluster, err := s.clusterRepo.GetByID(ctx, vm.ClusterID)
	if err != nil {
		return err
	}
	if cluster == nil {
		return v1.ErrClusterNotFound
	}
	if cluster.VirtualCpus == 0 && cluster.Disk == 0 && cluster.Ram == 0 {
		return nil
	}
	usage, err := s.vmRepo.UsedResources(ctx, ownerID)
	if err != nil {
		return err
	}
	exceeded := func(limit, used, add int64) bool {
		return limit > 0 && add > 0 && used+add > limit
	}
	if exceeded(cluster.VirtualCpus, usage.VirtualCpus, vm.VirtualCpus) ||
		exceeded(cluster.Disk, usage.DiskSize, vm.DiskSize) ||
		exceeded(cluster.Ram, usage.Ram, vm.Ram) {
		return v1.ErrQuotaExceeded
	}
	return nil
}

func (s *virtualMachineService) Shutdown(ctx context.Context, id int64) (*model.Job, error) {
	return s.powerOp(ctx, id, "shutdown")
}

func (s *virtualMachineService) Startup(ctx context.Context, id int64) (*model.Job, error) {
	return s.powerOp(ctx, id, "startup")
}

func (s *virtualMachineService) Reboot(ctx context.Context, id int64) (*model.Job, error) {
	return s.powerOp(ctx, id, "reboot")
}

// powerOp 下发电源操作并登记返回的远端任务
// 任务 ignore_cache 置位进入实时刷新；虚拟机同样置位，直到任务终态才恢复窗口策略
func (s *virtualMachineService) powerOp(ctx context.Context, id int64, action string) (*model.Job, error) {
	vm, err := s.vmRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, v1.ErrVMNotFound
	}
	client, err := s.registry.GetClient(ctx, vm.ClusterHash, vm.ClusterID)
	if err != nil {
		return nil, err
	}

	var jobID int64
	switch action {
	case "shutdown":
		jobID, err = client.ShutdownInstance(ctx, vm.Hostname)
	case "startup":
		jobID, err = client.StartupInstance(ctx, vm.Hostname)
	case "reboot":
		jobID, err = client.RebootInstance(ctx, vm.Hostname)
	}
	if err != nil {
		return nil, err
	}

	job := &model.Job{
		JobID:       jobID,
		ClusterID:   vm.ClusterID,
		ClusterHash: vm.ClusterHash,
		TargetKind:  model.TargetKindVM,
		TargetID:    vm.Id,
		Status:      model.JobStatusQueued,
	}
	job.IgnoreCache = true

	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.jobRepo.Create(ctx, job); err != nil {
			return err
		}
		vm.LastJobID = job.Id
		vm.IgnoreCache = true
		return s.vmRepo.Update(ctx, vm)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Info("power operation submitted",
		zap.String("action", action), zap.String("hostname", vm.Hostname),
		zap.Int64("job_id", jobID))
	return job, nil
}
