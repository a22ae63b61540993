package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ganetisphere/internal/model"
	"ganetisphere/pkg/ganeti"

	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	Method string
	Path   string
	Tags   []string
}

// newTagServer 模拟远端标签接口，记录收到的标签变更请求
func newTagServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Tags:   r.URL.Query()["tag"],
		})
		mu.Unlock()
		json.NewEncoder(w).Encode(101)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedRequest, len(requests))
		copy(out, requests)
		return out
	}
}

func TestPersistReconcilesOwnerTag(t *testing.T) {
	server, recorded := newTagServer(t)
	client, err := ganeti.NewClientFromURL(server.URL, "admin", "secret")
	assert.NoError(t, err)

	repo := newFakeVMRepo()
	vm := &model.VirtualMachine{ClusterID: 1, Hostname: "vm1.example.org", OwnerID: 2}
	assert.NoError(t, repo.Create(context.Background(), vm))
	vm.SetInfo(model.Info{"tags": []interface{}{"gwm:owner:1", "web", "gwm:owner:3"}})

	res := &vmResource{vm: vm, client: client, repo: repo}
	assert.NoError(t, res.Persist(context.Background()))

	// 删错误归属标签和补当前归属标签各恰好一次远端调用
	requests := recorded()
	assert.Len(t, requests, 2)
	assert.Equal(t, http.MethodDelete, requests[0].Method)
	assert.Equal(t, "/2/instances/vm1.example.org/tags", requests[0].Path)
	assert.ElementsMatch(t, []string{"gwm:owner:1", "gwm:owner:3"}, requests[0].Tags)
	assert.Equal(t, http.MethodPut, requests[1].Method)
	assert.Equal(t, []string{"gwm:owner:2"}, requests[1].Tags)

	// 内存镜像同步更新，再保存一次不会重复触发校正
	assert.ElementsMatch(t, []string{"web", "gwm:owner:2"}, vm.Info().Tags())
	assert.NoError(t, res.Persist(context.Background()))
	assert.Len(t, recorded(), 2)
}

func TestPersistOwnerTagAlreadyCorrect(t *testing.T) {
	server, recorded := newTagServer(t)
	client, err := ganeti.NewClientFromURL(server.URL, "admin", "secret")
	assert.NoError(t, err)

	repo := newFakeVMRepo()
	vm := &model.VirtualMachine{ClusterID: 1, Hostname: "vm1.example.org", OwnerID: 2}
	assert.NoError(t, repo.Create(context.Background(), vm))
	vm.SetInfo(model.Info{"tags": []interface{}{"web", "gwm:owner:2"}})

	res := &vmResource{vm: vm, client: client, repo: repo}
	assert.NoError(t, res.Persist(context.Background()))

	assert.Empty(t, recorded())
}

func TestPersistClearsOwnerTagWhenUnowned(t *testing.T) {
	server, recorded := newTagServer(t)
	client, err := ganeti.NewClientFromURL(server.URL, "admin", "secret")
	assert.NoError(t, err)

	repo := newFakeVMRepo()
	vm := &model.VirtualMachine{ClusterID: 1, Hostname: "vm1.example.org", OwnerID: 0}
	assert.NoError(t, repo.Create(context.Background(), vm))
	vm.SetInfo(model.Info{"tags": []interface{}{"gwm:owner:9", "web"}})

	res := &vmResource{vm: vm, client: client, repo: repo}
	assert.NoError(t, res.Persist(context.Background()))

	requests := recorded()
	assert.Len(t, requests, 1)
	assert.Equal(t, http.MethodDelete, requests[0].Method)
	assert.Equal(t, []string{"gwm:owner:9"}, requests[0].Tags)
	assert.Equal(t, []string{"web"}, vm.Info().Tags())
}

func TestVMParsePersistent(t *testing.T) {
	vm := &model.VirtualMachine{VirtualCpus: -1, DiskSize: -1, Ram: -1}
	res := &vmResource{vm: vm}

	res.ParsePersistent(model.Info{
		"beparams":   map[string]interface{}{"memory": float64(512), "vcpus": float64(2)},
		"disk.sizes": []interface{}{float64(10240), float64(4096)},
		"os":         "debootstrap+default",
	})

	assert.Equal(t, int64(512), vm.Ram)
	assert.Equal(t, int64(2), vm.VirtualCpus)
	assert.Equal(t, int64(14336), vm.DiskSize)
	assert.Equal(t, "debootstrap+default", vm.OperatingSystem)
}

func TestSetOwnerQuotaExceeded(t *testing.T) {
	server, _ := newTagServer(t)
	registry, fingerprint := testRegistry(t, server, 1)

	clusterRepo := &stubClusterRepoStore{clusters: map[int64]*model.Cluster{
		1: {Id: 1, Hostname: "ganeti.example.org", Ram: 1000, Hash: fingerprint},
	}}
	vmRepo := newFakeVMRepo()

	// 已有归属记录占掉大部分配额
	existing := &model.VirtualMachine{ClusterID: 1, Hostname: "vm0", OwnerID: 7, Ram: 600, VirtualCpus: 1, DiskSize: 100}
	assert.NoError(t, vmRepo.Create(context.Background(), existing))
	target := &model.VirtualMachine{ClusterID: 1, ClusterHash: fingerprint, Hostname: "vm1", Ram: 512, VirtualCpus: 1, DiskSize: 100}
	assert.NoError(t, vmRepo.Create(context.Background(), target))

	svc := NewVirtualMachineService(newTestService(t), newTestEngine(t), registry, vmRepo, clusterRepo, newFakeJobRepo())

	err := svc.SetOwner(context.Background(), target.Id, 7)
	assert.Error(t, err)

	stored, _ := vmRepo.GetByID(context.Background(), target.Id)
	assert.Equal(t, int64(0), stored.OwnerID)
}
