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

type ClusterService interface {
	CreateCluster(ctx context.Context, req *v1.CreateClusterRequest) (*model.Cluster, error)
	UpdateCluster(ctx context.Context, id int64, req *v1.UpdateClusterRequest) error
	DeleteCluster(ctx context.Context, id int64) error
	GetCluster(ctx context.Context, id int64) (*model.Cluster, error)
	GetClusterBySlug(ctx context.Context, slug string) (*model.Cluster, error)
	ListClusters(ctx context.Context, page, pageSize int) ([]*model.Cluster, int64, error)
	RefreshCluster(ctx context.Context, id int64) (*model.Cluster, error)
	VerifyCluster(ctx context.Context, id int64) error
	SyncVirtualMachines(ctx context.Context, id int64, remove bool) (added, removed []string, err error)
	MissingInGaneti(ctx context.Context, id int64) ([]string, error)
	MissingInDB(ctx context.Context, id int64) ([]string, error)
	Nodes(ctx context.Context, id int64) ([]model.Info, error)
	Node(ctx context.Context, id int64, name string) (model.Info, error)
	Instances(ctx context.Context, id int64) ([]string, error)
	Instance(ctx context.Context, id int64, name string) (model.Info, error)
	Quota(ctx context.Context, id int64, ownerID int64) (*v1.ClusterQuotaResponseData, error)
}

func NewClusterService(
	service *Service,
	engine *cache.Engine,
	registry *rapi.Registry,
	clusterRepo repository.ClusterRepository,
	vmRepo repository.VirtualMachineRepository,
	jobRepo repository.JobRepository,
) ClusterService {
	return &clusterService{
		Service:     service,
		engine:      engine,
		registry:    registry,
		clusterRepo: clusterRepo,
		vmRepo:      vmRepo,
		jobRepo:     jobRepo,
	}
}

type clusterService struct {
	*Service
	engine      *cache.Engine
	registry    *rapi.Registry
	clusterRepo repository.ClusterRepository
	vmRepo      repository.VirtualMachineRepository
	jobRepo     repository.JobRepository
}

// clusterResource 把集群记录接入缓存引擎
type clusterResource struct {
	cluster *model.Cluster
	client  *ganeti.Client
	repo    repository.ClusterRepository
}

func (r *clusterResource) CacheKey() string {
	return fmt.Sprintf("cluster:%d", r.cluster.Id)
}

func (r *clusterResource) Persisted() bool {
	return r.cluster.Id != 0
}

func (r *clusterResource) Cache() *model.ResourceCache {
	return &r.cluster.ResourceCache
}

func (r *clusterResource) Fetch(ctx context.Context) (model.Info, error) {
	raw, err := r.client.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	return model.Info(raw), nil
}

func (r *clusterResource) ParseTransient(info model.Info) {
	r.cluster.ParseCTime(info)
	r.cluster.Software = "ganeti"
	r.cluster.Version = info.Str("software_version")
}

func (r *clusterResource) ParsePersistent(info model.Info) {}

func (r *clusterResource) Persist(ctx context.Context) error {
	if r.cluster.Id == 0 {
		return r.repo.Create(ctx, r.cluster)
	}
	return r.repo.Update(ctx, r.cluster)
}

func (r *clusterResource) PersistCachedAt(ctx context.Context, cachedAt time.Time) error {
	return r.repo.UpdateCachedAt(ctx, r.cluster.Id, cachedAt)
}

func (s *clusterService) clientFor(ctx context.Context, cluster *model.Cluster) (*ganeti.Client, error) {
	return s.registry.GetClient(ctx, cluster.Hash, cluster.Id)
}

func (s *clusterService) resource(ctx context.Context, cluster *model.Cluster) (*clusterResource, error) {
	client, err := s.clientFor(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return &clusterResource{cluster: cluster, client: client, repo: s.clusterRepo}, nil
}

func (s *clusterService) CreateCluster(ctx context.Context, req *v1.CreateClusterRequest) (*model.Cluster, error) {
	if exist, err := s.clusterRepo.GetByHostname(ctx, req.Hostname); err != nil {
		return nil, err
	} else if exist != nil {
		return nil, v1.ErrClusterAlreadyExists
	}

	slug := req.Slug
	if slug == "" {
		slug = strings.SplitN(req.Hostname, ".", 2)[0]
	}
	port := req.Port
	if port == 0 {
		port = 5080
	}
	cluster := &model.Cluster{
		Hostname:    req.Hostname,
		Slug:        slug,
		Port:        port,
		Description: req.Description,
		Username:    req.Username,
		Password:    req.Password,
		VirtualCpus: int64(req.VirtualCpus),
		Disk:        int64(req.Disk),
		Ram:         int64(req.Ram),
		IsEnabled:   1,
	}
	cluster.Hash = cluster.CreateHash()
	if err := s.clusterRepo.Create(ctx, cluster); err != nil {
		return nil, err
	}

	// 首次拉取尽力而为，失败只体现在 Error 字段上
	if res, err := s.resource(ctx, cluster); err == nil {
		s.engine.Refresh(ctx, res)
	} else {
		cluster.Error = err.Error()
	}
	return cluster, nil
}

// UpdateCluster 更新集群，凭据变化时重算指纹并联动刷新下属记录的冗余指纹
func (s *clusterService) UpdateCluster(ctx context.Context, id int64, req *v1.UpdateClusterRequest) error {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cluster == nil {
		return v1.ErrClusterNotFound
	}

	oldHash := cluster.Hash
	if req.Hostname != "" {
		cluster.Hostname = req.Hostname
	}
	if req.Description != "" {
		cluster.Description = req.Description
	}
	if req.Username != "" {
		cluster.Username = req.Username
	}
	if req.Password != "" {
		cluster.Password = req.Password
	}
	if req.Port != 0 {
		cluster.Port = req.Port
	}
	if req.VirtualCpus != nil {
		cluster.VirtualCpus = int64(*req.VirtualCpus)
	}
	if req.Disk != nil {
		cluster.Disk = int64(*req.Disk)
	}
	if req.Ram != nil {
		cluster.Ram = int64(*req.Ram)
	}
	if req.IsEnabled != nil {
		cluster.IsEnabled = *req.IsEnabled
	}

	cluster.Hash = cluster.CreateHash()
	if cluster.Hash == oldHash {
		return s.clusterRepo.Update(ctx, cluster)
	}

	// 指纹变化必须和下属记录的冗余指纹在同一事务里落库
	return s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.clusterRepo.Update(ctx, cluster); err != nil {
			return err
		}
		if err := s.vmRepo.UpdateClusterHash(ctx, cluster.Id, cluster.Hash); err != nil {
			return err
		}
		return s.jobRepo.UpdateClusterHash(ctx, cluster.Id, cluster.Hash)
	})
}

func (s *clusterService) DeleteCluster(ctx context.Context, id int64) error {
	return s.clusterRepo.Delete(ctx, id)
}

func (s *clusterService) GetCluster(ctx context.Context, id int64) (*model.Cluster, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, v1.ErrClusterNotFound
	}
	s.loadInfo(ctx, cluster)
	return cluster, nil
}

func (s *clusterService) GetClusterBySlug(ctx context.Context, slug string) (*model.Cluster, error) {
	cluster, err := s.clusterRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, v1.ErrClusterNotFound
	}
	s.loadInfo(ctx, cluster)
	return cluster, nil
}

func (s *clusterService) loadInfo(ctx context.Context, cluster *model.Cluster) {
	res, err := s.resource(ctx, cluster)
	if err != nil {
		cluster.Error = err.Error()
		return
	}
	s.engine.LoadInfo(ctx, res)
}

func (s *clusterService) ListClusters(ctx context.Context, page, pageSize int) ([]*model.Cluster, int64, error) {
	clusters, total, err := s.clusterRepo.ListWithPagination(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	// 列表页不触发远端刷新，只从已有缓存解析瞬态字段
	for _, cluster := range clusters {
		if info := cluster.Info(); info != nil {
			cluster.ParseCTime(info)
			cluster.Software = "ganeti"
			cluster.Version = info.Str("software_version")
		}
	}
	return clusters, total, nil
}

func (s *clusterService) RefreshCluster(ctx context.Context, id int64) (*model.Cluster, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, v1.ErrClusterNotFound
	}
	res, err := s.resource(ctx, cluster)
	if err != nil {
		return nil, err
	}
	s.engine.Refresh(ctx, res)
	return cluster, nil
}

// VerifyCluster 用存储的凭据探测远端 API 是否可达
func (s *clusterService) VerifyCluster(ctx context.Context, id int64) error {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cluster == nil {
		return v1.ErrClusterNotFound
	}
	client, err := s.clientFor(ctx, cluster)
	if err != nil {
		return err
	}
	if _, err := client.GetVersion(ctx); err != nil {
		s.logger.WithContext(ctx).Warn("cluster verify failed",
			zap.Int64("cluster_id", id), zap.Error(err))
		return v1.ErrClusterUnreachable
	}
	return nil
}

// SyncVirtualMachines 按主机名做集合差同步本地虚拟机记录
// 新增只建骨架记录，详情由各记录的惰性刷新补齐；remove 置位才删除远端已不存在的记录
func (s *clusterService) SyncVirtualMachines(ctx context.Context, id int64, remove bool) ([]string, []string, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cluster == nil {
		return nil, nil, v1.ErrClusterNotFound
	}
	client, err := s.clientFor(ctx, cluster)
	if err != nil {
		return nil, nil, err
	}
	remote, err := client.GetInstances(ctx)
	if err != nil {
		return nil, nil, err
	}
	local, err := s.vmRepo.ListHostnames(ctx, cluster.Id)
	if err != nil {
		return nil, nil, err
	}

	added := difference(remote, local)
	for _, hostname := range added {
		vm := &model.VirtualMachine{
			ClusterID:   cluster.Id,
			ClusterHash: cluster.Hash,
			Hostname:    hostname,
		}
		if err := s.vmRepo.Create(ctx, vm); err != nil {
			return nil, nil, err
		}
	}

	var removed []string
	if remove {
		removed = difference(local, remote)
		if len(removed) > 0 {
			if err := s.vmRepo.DeleteByHostnames(ctx, cluster.Id, removed); err != nil {
				return nil, nil, err
			}
		}
	}
	s.logger.WithContext(ctx).Info("virtual machines synced",
		zap.Int64("cluster_id", cluster.Id),
		zap.Int("added", len(added)), zap.Int("removed", len(removed)))
	return added, removed, nil
}

// MissingInGaneti 本地有记录但远端已不存在的主机名
func (s *clusterService) MissingInGaneti(ctx context.Context, id int64) ([]string, error) {
	remote, local, err := s.hostnameSets(ctx, id)
	if err != nil {
		return nil, err
	}
	return difference(local, remote), nil
}

// MissingInDB 远端存在但本地尚无记录的主机名
func (s *clusterService) MissingInDB(ctx context.Context, id int64) ([]string, error) {
	remote, local, err := s.hostnameSets(ctx, id)
	if err != nil {
		return nil, err
	}
	return difference(remote, local), nil
}

func (s *clusterService) hostnameSets(ctx context.Context, id int64) (remote, local []string, err error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cluster == nil {
		return nil, nil, v1.ErrClusterNotFound
	}
	client, err := s.clientFor(ctx, cluster)
	if err != nil {
		return nil, nil, err
	}
	remote, err = client.GetInstances(ctx)
	if err != nil {
		return nil, nil, err
	}
	local, err = s.vmRepo.ListHostnames(ctx, cluster.Id)
	if err != nil {
		return nil, nil, err
	}
	return remote, local, nil
}

// Nodes 节点不落库，读穿透到远端；远端报错时返回空列表
func (s *clusterService) Nodes(ctx context.Context, id int64) ([]model.Info, error) {
	client, err := s.clientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetNodes(ctx, true)
	if err != nil {
		if ganeti.IsApiError(err) {
			return []model.Info{}, nil
		}
		return nil, err
	}
	nodes := make([]model.Info, 0, len(raw))
	for _, n := range raw {
		nodes = append(nodes, model.Info(n))
	}
	return nodes, nil
}

func (s *clusterService) Node(ctx context.Context, id int64, name string) (model.Info, error) {
	client, err := s.clientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetNode(ctx, name)
	if err != nil {
		return nil, err
	}
	return model.Info(raw), nil
}

func (s *clusterService) Instances(ctx context.Context, id int64) ([]string, error) {
	client, err := s.clientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := client.GetInstances(ctx)
	if err != nil {
		if ganeti.IsApiError(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return names, nil
}

func (s *clusterService) Instance(ctx context.Context, id int64, name string) (model.Info, error) {
	client, err := s.clientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetInstance(ctx, name)
	if err != nil {
		return nil, err
	}
	return model.Info(raw), nil
}

func (s *clusterService) clientByID(ctx context.Context, id int64) (*ganeti.Client, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, v1.ErrClusterNotFound
	}
	return s.clientFor(ctx, cluster)
}

// Quota 集群配额上限与指定归属者的已用量
func (s *clusterService) Quota(ctx context.Context, id int64, ownerID int64) (*v1.ClusterQuotaResponseData, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, v1.ErrClusterNotFound
	}
	usage, err := s.vmRepo.UsedResources(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &v1.ClusterQuotaResponseData{
		VirtualCpus: int(cluster.VirtualCpus),
		Disk:        int(cluster.Disk),
		Ram:         int(cluster.Ram),
		UsedCpus:    int(usage.VirtualCpus),
		UsedDisk:    int(usage.DiskSize),
		UsedRam:     int(usage.Ram),
	}, nil
}

// difference 返回在 a 中但不在 b 中的元素
func difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0)
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
