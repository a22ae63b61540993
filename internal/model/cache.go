package model

import (
	"encoding/json"
	"time"
)

// ErrNoCachedInfo 惰性加载时本地既无缓存也未触发刷新的错误描述
const ErrNoCachedInfo = "No Cached Info"

// ResourceCache 集群侧资源在本地的缓存状态，内嵌到每个集群实体中
//
// 持久化字段：
//   - serialized_info：info 的序列化形式，只在保存时编码
//   - mtime：远端上报的最后修改时间，可能为空
//   - cached_at：最近一次刷新（或确认无变化）的时间，只会被刷新推进
//   - ignore_cache：置位后下一次访问绕过缓存窗口强制刷新
//
// 非持久化字段：
//   - info：反序列化后的远端信息，首次读取时惰性解码
//   - Error：最近一次拉取失败的描述，成功后清空
//   - CTime：远端创建时间，每次实例化从 info 重新解析
type ResourceCache struct {
	SerializedInfo []byte     `json:"-" gorm:"column:serialized_info"`
	Mtime          *time.Time `json:"mtime" gorm:"column:mtime"`
	CachedAt       *time.Time `json:"cached_at" gorm:"column:cached_at"`
	IgnoreCache    bool       `json:"ignore_cache" gorm:"column:ignore_cache"`

	info  Info
	Error string     `json:"-" gorm:"-"`
	CTime *time.Time `json:"-" gorm:"-"`
}

// Info 返回已解码的远端信息
// serialized_info 存在而 info 尚未解码时就地解码；解码失败视同"尚未拉取"
func (c *ResourceCache) Info() Info {
	if c.info == nil && c.SerializedInfo != nil {
		var decoded Info
		if err := json.Unmarshal(c.SerializedInfo, &decoded); err == nil {
			c.info = decoded
		}
	}
	return c.info
}

// SetInfo 写入新的远端信息并将编码形式标记为脏
// 序列化是惰性的，只在保存时发生；解析由缓存引擎同步触发
func (c *ResourceCache) SetInfo(info Info) {
	c.info = info
	c.SerializedInfo = nil
}

// EncodeInfo 在保存前编码 info，保证落库的 blob 不落后于内存状态
// 每次变更恰好编码一次：SetInfo 之后 serialized_info 为空才会重新编码
func (c *ResourceCache) EncodeInfo() error {
	if c.SerializedInfo == nil && c.info != nil {
		data, err := json.Marshal(c.info)
		if err != nil {
			return err
		}
		c.SerializedInfo = data
	}
	return nil
}

// ParseCTime 从 info 解析远端创建时间（瞬态字段，ctime 为 null 时跳过）
func (c *ResourceCache) ParseCTime(info Info) {
	if t := info.Time("ctime"); t != nil {
		c.CTime = t
	}
}
