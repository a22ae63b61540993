package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/cache"
	"ganetisphere/internal/rapi"
	"ganetisphere/internal/repository"

	"github.com/pkg/errors"
)

const consoleTokenTTL = time.Minute

var ErrConsoleToken = errors.New("invalid or expired console token")

// ConsoleService 虚拟机 VNC 控制台
// 实例的 VNC 端口开在其宿主节点上，这里签发一次性短期 token，
// WebSocket 代理凭 token 建立到节点 VNC 端口的 TCP 连接
type ConsoleService interface {
	GetConsole(ctx context.Context, vmID int64) (map[string]interface{}, error)
	DialConsole(ctx context.Context, token string) (net.Conn, error)
}

func NewConsoleService(
	service *Service,
	engine *cache.Engine,
	registry *rapi.Registry,
	vmRepo repository.VirtualMachineRepository,
) ConsoleService {
	return &consoleService{
		Service:  service,
		engine:   engine,
		registry: registry,
		vmRepo:   vmRepo,
		targets:  make(map[string]consoleTarget),
	}
}

type consoleTarget struct {
	address   string
	expiresAt time.Time
}

type consoleService struct {
	*Service
	engine   *cache.Engine
	registry *rapi.Registry
	vmRepo   repository.VirtualMachineRepository

	mu      sync.Mutex
	targets map[string]consoleTarget
}

func (s *consoleService) GetConsole(ctx context.Context, vmID int64) (map[string]interface{}, error) {
	vm, err := s.vmRepo.GetByID(ctx, vmID)
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
	s.engine.LoadInfo(ctx, &vmResource{vm: vm, client: client, repo: s.vmRepo})

	info := vm.Info()
	if info == nil {
		return nil, errors.New("no cached instance info")
	}
	port := info.Int("network_port")
	node := info.Str("pnode")
	if port == 0 || node == "" {
		return nil, errors.New("instance has no console endpoint")
	}

	token, err := s.sid.GenString()
	if err != nil {
		return nil, err
	}
	address := fmt.Sprintf("%s:%d", node, port)

	s.mu.Lock()
	s.pruneLocked()
	s.targets[token] = consoleTarget{address: address, expiresAt: time.Now().Add(consoleTokenTTL)}
	s.mu.Unlock()

	return map[string]interface{}{
		"ws_token": token,
		"node":     node,
		"port":     port,
	}, nil
}

// DialConsole 消费 token 并建立到节点 VNC 端口的连接，token 一次有效
func (s *consoleService) DialConsole(ctx context.Context, token string) (net.Conn, error) {
	s.mu.Lock()
	target, ok := s.targets[token]
	if ok {
		delete(s.targets, token)
	}
	s.mu.Unlock()

	if !ok || time.Now().After(target.expiresAt) {
		return nil, ErrConsoleToken
	}

	var d net.Dialer
	d.Timeout = 10 * time.Second
	return d.DialContext(ctx, "tcp", target.address)
}

func (s *consoleService) pruneLocked() {
	now := time.Now()
	for token, target := range s.targets {
		if now.After(target.expiresAt) {
			delete(s.targets, token)
		}
	}
}
