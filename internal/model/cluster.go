package model

import (
	"time"

	"ganetisphere/pkg/hash"
)

type Cluster struct {
	Id          int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Hostname    string `json:"hostname" gorm:"column:hostname;uniqueIndex;size:128"`
	Slug        string `json:"slug" gorm:"column:slug;uniqueIndex;size:50"`
	Port        int    `json:"port" gorm:"column:port;default:5080"`
	Description string `json:"description" gorm:"column:description;size:128"`
	Username    string `json:"username" gorm:"column:username;size:128"`
	Password    string `json:"-" gorm:"column:password;size:128"`
	Hash        string `json:"-" gorm:"column:hash;size:40"` // 连接凭据指纹，凭据变更后重算

	// 资源配额上限，0 表示不限制
	VirtualCpus int64 `json:"virtual_cpus" gorm:"column:virtual_cpus;default:0"`
	Disk        int64 `json:"disk" gorm:"column:disk;default:0"`
	Ram         int64 `json:"ram" gorm:"column:ram;default:0"`

	IsEnabled int8 `json:"is_enabled" gorm:"column:is_enabled;default:1"` // 是否参与后台同步，1-启用，0-禁用

	ResourceCache `gorm:"embedded"`

	// 瞬态字段，每次实例化从 info 重新解析
	Software string `json:"software" gorm:"-"`
	Version  string `json:"version" gorm:"-"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (Cluster) TableName() string {
	return "ganeti_cluster"
}

// CreateHash 根据当前连接凭据计算指纹
func (c *Cluster) CreateHash() string {
	return hash.Fingerprint(c.Username, c.Password, c.Hostname, c.Port)
}
