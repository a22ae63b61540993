package service

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"ganetisphere/internal/cache"
	"ganetisphere/internal/model"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"
	"ganetisphere/pkg/hash"
	"ganetisphere/pkg/jwt"
	"ganetisphere/pkg/log"
	"ganetisphere/pkg/sid"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// 测试共用的内存假仓储和服务构造

type stubTransaction struct{}

func (stubTransaction) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	conf := viper.New()
	conf.Set("security.jwt.key", "test-key")
	return NewService(stubTransaction{}, &log.Logger{Logger: zap.NewNop()}, sid.NewSid(), jwt.NewJwt(conf))
}

func newTestEngine(t *testing.T) *cache.Engine {
	t.Helper()
	conf := viper.New()
	conf.Set("cache.lazy_refresh_ms", 600000)
	return cache.NewEngine(conf, &log.Logger{Logger: zap.NewNop()})
}

// testRegistry 返回一个解析到指定 httptest TLS 服务的注册表和对应指纹
func testRegistry(t *testing.T, server *httptest.Server, clusterID int64) (*rapi.Registry, string) {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	creds := &repository.ClusterCredentials{
		Hash:     hash.Fingerprint("admin", "secret", u.Hostname(), port),
		Hostname: u.Hostname(),
		Port:     port,
		Username: "admin",
		Password: "secret",
	}
	repo := &credsOnlyClusterRepo{creds: map[int64]*repository.ClusterCredentials{clusterID: creds}}
	return rapi.NewRegistry(repo), creds.Hash
}

type credsOnlyClusterRepo struct {
	repository.ClusterRepository
	creds map[int64]*repository.ClusterCredentials
}

func (r *credsOnlyClusterRepo) GetCredentials(ctx context.Context, id int64) (*repository.ClusterCredentials, error) {
	return r.creds[id], nil
}

// stubClusterRepoStore 只读的集群存根，其余接口方法用不到
type stubClusterRepoStore struct {
	repository.ClusterRepository
	clusters map[int64]*model.Cluster
	updates  []*model.Cluster
}

func (r *stubClusterRepoStore) GetByID(ctx context.Context, id int64) (*model.Cluster, error) {
	cluster, ok := r.clusters[id]
	if !ok {
		return nil, nil
	}
	copied := *cluster
	return &copied, nil
}

func (r *stubClusterRepoStore) Update(ctx context.Context, cluster *model.Cluster) error {
	copied := *cluster
	r.clusters[cluster.Id] = &copied
	r.updates = append(r.updates, &copied)
	return nil
}

func (r *stubClusterRepoStore) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	if cluster, ok := r.clusters[id]; ok {
		cluster.CachedAt = &cachedAt
	}
	return nil
}

// fakeVMRepo 内存虚拟机仓储
type fakeVMRepo struct {
	nextID  int64
	vms     map[int64]*model.VirtualMachine
	updates int
}

func newFakeVMRepo() *fakeVMRepo {
	return &fakeVMRepo{nextID: 1, vms: make(map[int64]*model.VirtualMachine)}
}

func (r *fakeVMRepo) Create(ctx context.Context, vm *model.VirtualMachine) error {
	vm.Id = r.nextID
	r.nextID++
	copied := *vm
	r.vms[vm.Id] = &copied
	return nil
}

func (r *fakeVMRepo) Update(ctx context.Context, vm *model.VirtualMachine) error {
	r.updates++
	copied := *vm
	r.vms[vm.Id] = &copied
	return nil
}

func (r *fakeVMRepo) Delete(ctx context.Context, id int64) error {
	delete(r.vms, id)
	return nil
}

func (r *fakeVMRepo) GetByID(ctx context.Context, id int64) (*model.VirtualMachine, error) {
	vm, ok := r.vms[id]
	if !ok {
		return nil, nil
	}
	copied := *vm
	return &copied, nil
}

func (r *fakeVMRepo) GetByHostname(ctx context.Context, clusterID int64, hostname string) (*model.VirtualMachine, error) {
	for _, vm := range r.vms {
		if vm.ClusterID == clusterID && vm.Hostname == hostname {
			copied := *vm
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeVMRepo) GetByClusterID(ctx context.Context, clusterID int64) ([]*model.VirtualMachine, error) {
	var out []*model.VirtualMachine
	for _, vm := range r.vms {
		if vm.ClusterID == clusterID {
			copied := *vm
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeVMRepo) ListHostnames(ctx context.Context, clusterID int64) ([]string, error) {
	var out []string
	for _, vm := range r.vms {
		if vm.ClusterID == clusterID {
			out = append(out, vm.Hostname)
		}
	}
	return out, nil
}

func (r *fakeVMRepo) DeleteByHostnames(ctx context.Context, clusterID int64, hostnames []string) error {
	for id, vm := range r.vms {
		if vm.ClusterID != clusterID {
			continue
		}
		for _, h := range hostnames {
			if vm.Hostname == h {
				delete(r.vms, id)
				break
			}
		}
	}
	return nil
}

func (r *fakeVMRepo) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	if vm, ok := r.vms[id]; ok {
		vm.CachedAt = &cachedAt
	}
	return nil
}

func (r *fakeVMRepo) UpdateClusterHash(ctx context.Context, clusterID int64, h string) error {
	for _, vm := range r.vms {
		if vm.ClusterID == clusterID {
			vm.ClusterHash = h
		}
	}
	return nil
}

func (r *fakeVMRepo) UsedResources(ctx context.Context, ownerID int64) (*repository.OwnerUsage, error) {
	usage := &repository.OwnerUsage{}
	for _, vm := range r.vms {
		if vm.OwnerID == ownerID && vm.Ram != -1 {
			usage.Ram += vm.Ram
			usage.DiskSize += vm.DiskSize
			usage.VirtualCpus += vm.VirtualCpus
		}
	}
	return usage, nil
}

// fakeJobRepo 内存任务仓储
type fakeJobRepo struct {
	nextID int64
	jobs   map[int64]*model.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{nextID: 1, jobs: make(map[int64]*model.Job)}
}

func (r *fakeJobRepo) Create(ctx context.Context, job *model.Job) error {
	job.Id = r.nextID
	r.nextID++
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *model.Job) error {
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) GetByJobID(ctx context.Context, clusterID, jobID int64) (*model.Job, error) {
	for _, job := range r.jobs {
		if job.ClusterID == clusterID && job.JobID == jobID {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) ListPending(ctx context.Context) ([]*model.Job, error) {
	var out []*model.Job
	for _, job := range r.jobs {
		if job.IgnoreCache {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) UpdateCachedAt(ctx context.Context, id int64, cachedAt time.Time) error {
	if job, ok := r.jobs[id]; ok {
		job.CachedAt = &cachedAt
	}
	return nil
}

func (r *fakeJobRepo) UpdateIgnoreCache(ctx context.Context, id int64, ignoreCache bool) error {
	if job, ok := r.jobs[id]; ok {
		job.IgnoreCache = ignoreCache
	}
	return nil
}

func (r *fakeJobRepo) UpdateClusterHash(ctx context.Context, clusterID int64, h string) error {
	for _, job := range r.jobs {
		if job.ClusterID == clusterID {
			job.ClusterHash = h
		}
	}
	return nil
}
