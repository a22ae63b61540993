package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ganetisphere/internal/model"

	"github.com/stretchr/testify/assert"
)

// newInstanceServer 模拟远端实例列表接口
func newInstanceServer(t *testing.T, hostnames []string) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/instances":
			var items []map[string]interface{}
			for _, h := range hostnames {
				items = append(items, map[string]interface{}{"id": h})
			}
			json.NewEncoder(w).Encode(items)
		case "/version":
			json.NewEncoder(w).Encode(2)
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"message": "not found"})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newSyncFixture(t *testing.T, remote []string) (ClusterService, *fakeVMRepo, string) {
	t.Helper()
	server := newInstanceServer(t, remote)
	registry, fingerprint := testRegistry(t, server, 1)

	clusterRepo := &stubClusterRepoStore{clusters: map[int64]*model.Cluster{
		1: {Id: 1, Hostname: "ganeti.example.org", Hash: fingerprint},
	}}
	vmRepo := newFakeVMRepo()
	svc := NewClusterService(newTestService(t), newTestEngine(t), registry, clusterRepo, vmRepo, newFakeJobRepo())
	return svc, vmRepo, fingerprint
}

func TestSyncVirtualMachinesAddsMissing(t *testing.T) {
	svc, vmRepo, fingerprint := newSyncFixture(t, []string{"vm1", "vm2"})

	existing := &model.VirtualMachine{ClusterID: 1, Hostname: "vm2"}
	assert.NoError(t, vmRepo.Create(context.Background(), existing))

	added, removed, err := svc.SyncVirtualMachines(context.Background(), 1, false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"vm1"}, added)
	assert.Empty(t, removed)

	created, err := vmRepo.GetByHostname(context.Background(), 1, "vm1")
	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, fingerprint, created.ClusterHash)
}

func TestSyncVirtualMachinesRemoveFlag(t *testing.T) {
	svc, vmRepo, _ := newSyncFixture(t, []string{"vm1"})

	stale := &model.VirtualMachine{ClusterID: 1, Hostname: "vm-gone"}
	assert.NoError(t, vmRepo.Create(context.Background(), stale))

	// remove=false 时远端已不存在的记录保留
	_, removed, err := svc.SyncVirtualMachines(context.Background(), 1, false)
	assert.NoError(t, err)
	assert.Empty(t, removed)
	kept, _ := vmRepo.GetByHostname(context.Background(), 1, "vm-gone")
	assert.NotNil(t, kept)

	_, removed, err = svc.SyncVirtualMachines(context.Background(), 1, true)
	assert.NoError(t, err)
	assert.Equal(t, []string{"vm-gone"}, removed)
	gone, _ := vmRepo.GetByHostname(context.Background(), 1, "vm-gone")
	assert.Nil(t, gone)
}

func TestSyncVirtualMachinesIdempotent(t *testing.T) {
	svc, vmRepo, _ := newSyncFixture(t, []string{"vm1", "vm2"})

	added, _, err := svc.SyncVirtualMachines(context.Background(), 1, true)
	assert.NoError(t, err)
	assert.Len(t, added, 2)

	added, removed, err := svc.SyncVirtualMachines(context.Background(), 1, true)
	assert.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, removed)

	hostnames, _ := vmRepo.ListHostnames(context.Background(), 1)
	assert.Len(t, hostnames, 2)
}

func TestMissingInGanetiAndDB(t *testing.T) {
	svc, vmRepo, _ := newSyncFixture(t, []string{"vm1", "vm2"})

	local := &model.VirtualMachine{ClusterID: 1, Hostname: "vm-local-only"}
	assert.NoError(t, vmRepo.Create(context.Background(), local))
	shared := &model.VirtualMachine{ClusterID: 1, Hostname: "vm1"}
	assert.NoError(t, vmRepo.Create(context.Background(), shared))

	missingRemote, err := svc.MissingInGaneti(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"vm-local-only"}, missingRemote)

	missingLocal, err := svc.MissingInDB(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"vm2"}, missingLocal)
}

func TestVerifyCluster(t *testing.T) {
	svc, _, _ := newSyncFixture(t, nil)
	assert.NoError(t, svc.VerifyCluster(context.Background(), 1))
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []string{"a"}, difference([]string{"a", "b"}, []string{"b", "c"}))
	assert.Empty(t, difference(nil, []string{"x"}))
	assert.Equal(t, []string{"x"}, difference([]string{"x"}, nil))
}
