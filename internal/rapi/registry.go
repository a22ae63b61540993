package rapi

import (
	"context"
	"sync"

	"ganetisphere/internal/repository"
	"ganetisphere/pkg/ganeti"
	"ganetisphere/pkg/hash"

	"github.com/pkg/errors"
)

var ErrClusterNotFound = errors.New("cluster not found")

// Registry 按凭据指纹缓存的 RAPI 客户端注册表
// 指纹是凭据的摘要：凭据轮换后旧指纹不再命中，注册表会按集群当前凭据
// 重建客户端并淘汰旧条目，调用方拿到的始终是可用连接
type Registry struct {
	mu          sync.Mutex
	clients     map[string]*ganeti.Client
	byCluster   map[int64]string
	clusterRepo repository.ClusterRepository
}

func NewRegistry(clusterRepo repository.ClusterRepository) *Registry {
	return &Registry{
		clients:     make(map[string]*ganeti.Client),
		byCluster:   make(map[int64]string),
		clusterRepo: clusterRepo,
	}
}

// GetClient 按指纹取客户端，未命中时回源集群当前凭据重建
func (r *Registry) GetClient(ctx context.Context, fingerprint string, clusterID int64) (*ganeti.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[fingerprint]; ok {
		return client, nil
	}

	// 指纹过期：重新加载集群凭据，用当前指纹查一次再重建
	creds, err := r.clusterRepo.GetCredentials(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, ErrClusterNotFound
	}

	fresh := hash.Fingerprint(creds.Username, creds.Password, creds.Hostname, creds.Port)
	if client, ok := r.clients[fresh]; ok {
		r.byCluster[clusterID] = fresh
		return client, nil
	}

	if old, ok := r.byCluster[clusterID]; ok && old != fresh {
		delete(r.clients, old)
	}

	client, err := ganeti.NewClient(creds.Hostname, creds.Port, creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}
	r.clients[fresh] = client
	r.byCluster[clusterID] = fresh
	return client, nil
}

// Clear 清空全部缓存连接，主要供测试和凭据批量轮换后使用
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]*ganeti.Client)
	r.byCluster = make(map[int64]string)
}
