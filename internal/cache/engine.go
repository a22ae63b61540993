package cache

import (
	"context"
	"sync"
	"time"

	"ganetisphere/internal/model"
	"ganetisphere/pkg/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultLazyRefreshWindow 惰性刷新窗口默认值（毫秒配置项 cache.lazy_refresh_ms）
const DefaultLazyRefreshWindow = 10 * time.Minute

// Resource 集群侧实体接入通用缓存引擎的契约
// 每个实体提供自己的远端拉取和持久化/瞬态字段解析，缓存策略由引擎统一执行
type Resource interface {
	// CacheKey 实体的唯一键，用于按实体串行化写入
	CacheKey() string
	// Persisted 记录是否已有持久化身份，新记录的惰性加载是空操作
	Persisted() bool
	Cache() *model.ResourceCache
	// Fetch 实体特定的远端拉取
	Fetch(ctx context.Context) (model.Info, error)
	// ParseTransient 从 info 解析不落库的派生字段，每次实例化都会重算
	ParseTransient(info model.Info)
	// ParsePersistent 从 info 解析落库字段
	ParsePersistent(info model.Info)
	// Persist 完整保存记录（含编码后的 info）
	Persist(ctx context.Context) error
	// PersistCachedAt 远端无变化时的窄更新，只写 cached_at
	PersistCachedAt(ctx context.Context, cachedAt time.Time) error
}

type Engine struct {
	window time.Duration
	logger *log.Logger
	locks  keyedMutex

	now func() time.Time // 测试注入
}

func NewEngine(conf *viper.Viper, logger *log.Logger) *Engine {
	window := DefaultLazyRefreshWindow
	if ms := conf.GetInt("cache.lazy_refresh_ms"); ms > 0 {
		window = time.Duration(ms) * time.Millisecond
	}
	return &Engine{
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// LoadInfo 实例化持久记录后的惰性加载
// ignore_cache 置位或缓存超过窗口时同步刷新，否则只从现有 info 重算瞬态字段
func (e *Engine) LoadInfo(ctx context.Context, res Resource) {
	if !res.Persisted() {
		return
	}

	c := res.Cache()
	if c.IgnoreCache {
		e.Refresh(ctx, res)
		return
	}
	if c.CachedAt == nil || e.now().After(c.CachedAt.Add(e.window)) {
		e.Refresh(ctx, res)
		return
	}

	if info := c.Info(); info != nil {
		res.ParseTransient(info)
	} else {
		c.Error = model.ErrNoCachedInfo
	}
}

// Refresh 从远端拉取并解析
// 远端 mtime 前进才视为真实更新并完整落库；无变化时只窄更新 cached_at，
// 避免对未变状态做无谓的重新编码。拉取失败只写入 Error，其余缓存状态原样保留
func (e *Engine) Refresh(ctx context.Context, res Resource) {
	unlock := e.locks.lock(res.CacheKey())
	defer unlock()

	c := res.Cache()
	info, err := res.Fetch(ctx)
	if err != nil {
		c.Error = err.Error()
		e.logger.WithContext(ctx).Warn("remote refresh failed",
			zap.String("resource", res.CacheKey()), zap.Error(err))
		return
	}

	mtime := info.Time("mtime")
	now := e.now()
	c.CachedAt = &now

	// mtime 为空按"早于任何本地时间戳"处理：除非本地从未存过信息，否则走无变化分支
	if c.Mtime == nil || (mtime != nil && mtime.After(*c.Mtime)) {
		e.SetInfo(res, info)
		c.Mtime = mtime
		if err := e.Save(ctx, res); err != nil {
			c.Error = err.Error()
			return
		}
	} else {
		if err := res.PersistCachedAt(ctx, now); err != nil {
			c.Error = err.Error()
			return
		}
	}

	c.Error = ""
}

// SetInfo 写入新的远端信息并同步触发持久化/瞬态字段解析
func (e *Engine) SetInfo(res Resource, info model.Info) {
	c := res.Cache()
	c.SetInfo(info)
	res.ParseTransient(info)
	res.ParsePersistent(info)
}

// Save 保存前按需编码 info，保证落库 blob 与内存状态一致
func (e *Engine) Save(ctx context.Context, res Resource) error {
	if err := res.Cache().EncodeInfo(); err != nil {
		return err
	}
	return res.Persist(ctx)
}

// keyedMutex 按实体键串行化写入，防止并发刷新互相覆盖
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
