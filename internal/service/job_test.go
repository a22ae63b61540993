package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ganetisphere/internal/model"

	"github.com/stretchr/testify/assert"
)

// jobStatusServer 模拟任务状态接口，状态可在用例中途推进
type jobStatusServer struct {
	mu     sync.Mutex
	status string
	hits   int
}

func (s *jobStatusServer) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *jobStatusServer) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

func newJobStatusServer(t *testing.T, status string) (*httptest.Server, *jobStatusServer) {
	t.Helper()
	state := &jobStatusServer{status: status}
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/jobs/7" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"message": "not found"})
			return
		}
		state.mu.Lock()
		state.hits++
		payload := map[string]interface{}{"id": "7", "status": state.status}
		state.mu.Unlock()
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)
	return server, state
}

func TestJobLifecycle(t *testing.T) {
	server, state := newJobStatusServer(t, model.JobStatusRunning)
	registry, fingerprint := testRegistry(t, server, 1)

	vmRepo := newFakeVMRepo()
	jobRepo := newFakeJobRepo()
	svc := NewJobService(newTestService(t), newTestEngine(t), registry, jobRepo, vmRepo)

	ctx := context.Background()
	vm := &model.VirtualMachine{ClusterID: 1, ClusterHash: fingerprint, Hostname: "vm1"}
	assert.NoError(t, vmRepo.Create(ctx, vm))

	job := &model.Job{
		JobID:       7,
		ClusterID:   1,
		ClusterHash: fingerprint,
		TargetKind:  model.TargetKindVM,
		TargetID:    vm.Id,
		Status:      model.JobStatusQueued,
	}
	job.IgnoreCache = true
	assert.NoError(t, jobRepo.Create(ctx, job))
	vm.LastJobID = job.Id
	vm.IgnoreCache = true
	assert.NoError(t, vmRepo.Update(ctx, vm))

	// 未完结：每次读取都实时拉取，标记保持置位
	got, err := svc.GetJob(ctx, job.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	assert.True(t, got.IgnoreCache)
	assert.Equal(t, 1, state.Hits())

	got, err = svc.GetJob(ctx, job.Id)
	assert.NoError(t, err)
	assert.Equal(t, 2, state.Hits())

	// 进入终态：标记摘除，目标虚拟机上的标记一并摘除
	state.SetStatus(model.JobStatusSuccess)
	got, err = svc.GetJob(ctx, job.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.JobStatusSuccess, got.Status)
	assert.False(t, got.IgnoreCache)
	assert.Equal(t, 3, state.Hits())

	updatedVM, err := vmRepo.GetByID(ctx, vm.Id)
	assert.NoError(t, err)
	assert.False(t, updatedVM.IgnoreCache)

	// 终态之后缓存仍新鲜，不再打远端
	got, err = svc.GetJob(ctx, job.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.JobStatusSuccess, got.Status)
	assert.Equal(t, 3, state.Hits())
}

func TestJobTerminalLeavesOtherVMFlagAlone(t *testing.T) {
	server, _ := newJobStatusServer(t, model.JobStatusError)
	registry, fingerprint := testRegistry(t, server, 1)

	vmRepo := newFakeVMRepo()
	jobRepo := newFakeJobRepo()
	svc := NewJobService(newTestService(t), newTestEngine(t), registry, jobRepo, vmRepo)

	ctx := context.Background()
	vm := &model.VirtualMachine{ClusterID: 1, ClusterHash: fingerprint, Hostname: "vm1"}
	assert.NoError(t, vmRepo.Create(ctx, vm))

	job := &model.Job{
		JobID:       7,
		ClusterID:   1,
		ClusterHash: fingerprint,
		TargetKind:  model.TargetKindVM,
		TargetID:    vm.Id,
		Status:      model.JobStatusQueued,
	}
	job.IgnoreCache = true
	assert.NoError(t, jobRepo.Create(ctx, job))

	// 虚拟机此时挂的是另一个任务，不应被本任务的完结摘掉标记
	vm.LastJobID = job.Id + 100
	vm.IgnoreCache = true
	assert.NoError(t, vmRepo.Update(ctx, vm))

	got, err := svc.RefreshJob(ctx, job.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.JobStatusError, got.Status)
	assert.False(t, got.IgnoreCache)

	updatedVM, err := vmRepo.GetByID(ctx, vm.Id)
	assert.NoError(t, err)
	assert.True(t, updatedVM.IgnoreCache)
}

func TestSweepPendingJobs(t *testing.T) {
	server, state := newJobStatusServer(t, model.JobStatusSuccess)
	registry, fingerprint := testRegistry(t, server, 1)

	vmRepo := newFakeVMRepo()
	jobRepo := newFakeJobRepo()
	svc := NewJobService(newTestService(t), newTestEngine(t), registry, jobRepo, vmRepo)

	ctx := context.Background()
	pending := &model.Job{JobID: 7, ClusterID: 1, ClusterHash: fingerprint, Status: model.JobStatusQueued}
	pending.IgnoreCache = true
	assert.NoError(t, jobRepo.Create(ctx, pending))
	done := &model.Job{JobID: 8, ClusterID: 1, ClusterHash: fingerprint, Status: model.JobStatusSuccess}
	assert.NoError(t, jobRepo.Create(ctx, done))

	assert.NoError(t, svc.SweepPendingJobs(ctx))
	assert.Equal(t, 1, state.Hits())

	swept, err := jobRepo.GetByID(ctx, pending.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.JobStatusSuccess, swept.Status)
	assert.False(t, swept.IgnoreCache)

	// 已完结任务不在扫描范围里
	assert.NoError(t, svc.SweepPendingJobs(ctx))
	assert.Equal(t, 1, state.Hits())
}

func TestGetJobByRemoteID(t *testing.T) {
	server, _ := newJobStatusServer(t, model.JobStatusRunning)
	registry, fingerprint := testRegistry(t, server, 1)

	jobRepo := newFakeJobRepo()
	svc := NewJobService(newTestService(t), newTestEngine(t), registry, jobRepo, newFakeVMRepo())

	ctx := context.Background()
	job := &model.Job{JobID: 7, ClusterID: 1, ClusterHash: fingerprint, Status: model.JobStatusQueued}
	job.IgnoreCache = true
	assert.NoError(t, jobRepo.Create(ctx, job))

	got, err := svc.GetJobByRemoteID(ctx, 1, 7)
	assert.NoError(t, err)
	assert.Equal(t, job.Id, got.Id)
	assert.Equal(t, model.JobStatusRunning, got.Status)

	_, err = svc.GetJobByRemoteID(ctx, 1, 999)
	assert.Error(t, err)
}
