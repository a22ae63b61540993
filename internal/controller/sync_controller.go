package controller

import (
	"context"
	"sync"
	"time"

	"ganetisphere/internal/repository"
	"ganetisphere/internal/service"
	"ganetisphere/pkg/log"

	"go.uber.org/zap"
)

// SyncController 后台同步控制器
// 为每个启用的集群维护一个独立的同步循环：按 resyncPeriod 刷新集群信息
// 并对账虚拟机记录。集群的启用/禁用通过定期重扫生效，禁用即停循环
type SyncController struct {
	clusterRepo    repository.ClusterRepository
	clusterService service.ClusterService
	logger         *log.Logger
	workers        map[int64]*clusterWorker
	lock           sync.RWMutex
	resyncPeriod   time.Duration
}

type clusterWorker struct {
	clusterID int64
	hostname  string
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSyncController(
	clusterRepo repository.ClusterRepository,
	clusterService service.ClusterService,
	logger *log.Logger,
	resyncPeriod time.Duration,
) *SyncController {
	return &SyncController{
		clusterRepo:    clusterRepo,
		clusterService: clusterService,
		logger:         logger,
		workers:        make(map[int64]*clusterWorker),
		resyncPeriod:   resyncPeriod,
	}
}

func (c *SyncController) Start(ctx context.Context) error {
	c.logger.Info("starting sync controller")

	c.rescan(ctx)

	// 定期检查集群的新增/启用/禁用
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.rescan(ctx)
		}
	}
}

func (c *SyncController) Stop(ctx context.Context) error {
	c.logger.Info("stopping sync controller")

	c.lock.Lock()
	defer c.lock.Unlock()

	for _, w := range c.workers {
		w.cancel()
	}
	c.workers = make(map[int64]*clusterWorker)
	return nil
}

// rescan 对齐工作循环和启用集群的集合
func (c *SyncController) rescan(ctx context.Context) {
	clusters, err := c.clusterRepo.GetAllEnabled(ctx)
	if err != nil {
		c.logger.Error("failed to list enabled clusters", zap.Error(err))
		return
	}

	enabled := make(map[int64]string, len(clusters))
	for _, cluster := range clusters {
		enabled[cluster.Id] = cluster.Hostname
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	for id, w := range c.workers {
		if _, ok := enabled[id]; !ok {
			c.logger.Info("stopping cluster sync loop", zap.String("cluster", w.hostname))
			w.cancel()
			delete(c.workers, id)
		}
	}

	for id, hostname := range enabled {
		if _, ok := c.workers[id]; ok {
			continue
		}
		wctx, cancel := context.WithCancel(ctx)
		w := &clusterWorker{clusterID: id, hostname: hostname, ctx: wctx, cancel: cancel}
		c.workers[id] = w
		c.logger.Info("starting cluster sync loop", zap.String("cluster", hostname))
		go c.runWorker(w)
	}
}

func (c *SyncController) runWorker(w *clusterWorker) {
	// 启动时先跑一轮，不等第一个周期
	c.syncOnce(w)

	ticker := time.NewTicker(c.resyncPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			c.syncOnce(w)
		}
	}
}

func (c *SyncController) syncOnce(w *clusterWorker) {
	ctx, cancel := context.WithTimeout(w.ctx, c.resyncPeriod)
	defer cancel()

	if _, err := c.clusterService.RefreshCluster(ctx, w.clusterID); err != nil {
		c.logger.Warn("cluster refresh failed",
			zap.String("cluster", w.hostname), zap.Error(err))
	}
	// 后台对账只增不删，删除是运维动作，走接口里的 remove 开关
	if _, _, err := c.clusterService.SyncVirtualMachines(ctx, w.clusterID, false); err != nil {
		c.logger.Warn("virtual machine sync failed",
			zap.String("cluster", w.hostname), zap.Error(err))
	}
}
