package model

import (
	"time"
)

// Info 远端资源的原始信息，键值结构与 RAPI 返回的 JSON 一致
type Info map[string]interface{}

// Time 将 unix 秒时间戳字段解析为时间
// 字段缺失或为 null 时返回 nil（ganeti 2.1 的 ctime 恒为 null，必须容忍）
func (i Info) Time(key string) *time.Time {
	v, ok := i[key]
	if !ok || v == nil {
		return nil
	}
	sec, ok := toFloat(v)
	if !ok {
		return nil
	}
	t := time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9))
	return &t
}

func (i Info) Str(key string) string {
	s, _ := i[key].(string)
	return s
}

func (i Info) Int(key string) int64 {
	f, _ := toFloat(i[key])
	return int64(f)
}

// Tags 返回实例标签列表
func (i Info) Tags() []string {
	raw, ok := i["tags"].([]interface{})
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// SetTags 回写标签列表（标签对账会在内存中增删标签）
func (i Info) SetTags(tags []string) {
	raw := make([]interface{}, 0, len(tags))
	for _, t := range tags {
		raw = append(raw, t)
	}
	i["tags"] = raw
}

// Section 返回嵌套字典字段，如 beparams
func (i Info) Section(key string) Info {
	m, ok := i[key].(map[string]interface{})
	if !ok {
		return nil
	}
	return Info(m)
}

// Ints 返回数值数组字段，如 disk.sizes
func (i Info) Ints(key string) []int64 {
	raw, ok := i[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		if f, ok := toFloat(v); ok {
			out = append(out, int64(f))
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
