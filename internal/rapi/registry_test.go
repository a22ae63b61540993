package rapi

import (
	"context"
	"testing"

	"ganetisphere/internal/repository"
	"ganetisphere/pkg/hash"

	"github.com/stretchr/testify/assert"
)

// stubClusterRepo 只实现注册表用到的 GetCredentials
type stubClusterRepo struct {
	repository.ClusterRepository
	creds map[int64]*repository.ClusterCredentials
	calls int
}

func (s *stubClusterRepo) GetCredentials(ctx context.Context, id int64) (*repository.ClusterCredentials, error) {
	s.calls++
	return s.creds[id], nil
}

func testCreds(username, password, hostname string, port int) *repository.ClusterCredentials {
	return &repository.ClusterCredentials{
		Hash:     hash.Fingerprint(username, password, hostname, port),
		Hostname: hostname,
		Port:     port,
		Username: username,
		Password: password,
	}
}

func TestGetClientReturnsSameHandleForSameFingerprint(t *testing.T) {
	creds := testCreds("admin", "secret", "ganeti.example.org", 5080)
	repo := &stubClusterRepo{creds: map[int64]*repository.ClusterCredentials{1: creds}}
	r := NewRegistry(repo)

	first, err := r.GetClient(context.Background(), creds.Hash, 1)
	assert.NoError(t, err)
	second, err := r.GetClient(context.Background(), creds.Hash, 1)
	assert.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestGetClientRebuildsAfterCredentialRotation(t *testing.T) {
	oldCreds := testCreds("admin", "secret", "ganeti.example.org", 5080)
	repo := &stubClusterRepo{creds: map[int64]*repository.ClusterCredentials{1: oldCreds}}
	r := NewRegistry(repo)

	oldClient, err := r.GetClient(context.Background(), oldCreds.Hash, 1)
	assert.NoError(t, err)

	// 凭据轮换后，新指纹未命中会触发重建并淘汰集群的旧条目
	newCreds := testCreds("admin", "rotated", "ganeti.example.org", 5080)
	repo.creds[1] = newCreds

	newClient, err := r.GetClient(context.Background(), newCreds.Hash, 1)
	assert.NoError(t, err)
	assert.NotSame(t, oldClient, newClient)

	// 此后带着过期指纹的调用方也会被解析到当前客户端
	resolved, err := r.GetClient(context.Background(), oldCreds.Hash, 1)
	assert.NoError(t, err)
	assert.Same(t, newClient, resolved)
}

func TestGetClientUnknownCluster(t *testing.T) {
	repo := &stubClusterRepo{creds: map[int64]*repository.ClusterCredentials{}}
	r := NewRegistry(repo)

	_, err := r.GetClient(context.Background(), "deadbeef", 42)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestClearEmptiesRegistry(t *testing.T) {
	creds := testCreds("admin", "secret", "ganeti.example.org", 5080)
	repo := &stubClusterRepo{creds: map[int64]*repository.ClusterCredentials{1: creds}}
	r := NewRegistry(repo)

	first, err := r.GetClient(context.Background(), creds.Hash, 1)
	assert.NoError(t, err)

	r.Clear()

	second, err := r.GetClient(context.Background(), creds.Hash, 1)
	assert.NoError(t, err)
	assert.NotSame(t, first, second)
}
