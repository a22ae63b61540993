package model

import (
	"time"
)

// OwnerTagPrefix 实例归属标签前缀，标签值为 ClusterUser 的 ID
const OwnerTagPrefix = "gwm:owner:"

type VirtualMachine struct {
	Id          int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ClusterID   int64  `json:"cluster_id" gorm:"column:cluster_id;index"`
	ClusterHash string `json:"-" gorm:"column:cluster_hash;size:40"` // 冗余存储，避免按指纹取连接时回查集群
	Hostname    string `json:"hostname" gorm:"column:hostname;size:128;index"`
	OwnerID     int64  `json:"owner_id" gorm:"column:owner_id;default:0"` // 0 表示无归属

	// 资源字段从 info 解析而来，不独立权威；-1 表示尚未解析
	VirtualCpus     int64  `json:"virtual_cpus" gorm:"column:virtual_cpus;default:-1"`
	DiskSize        int64  `json:"disk_size" gorm:"column:disk_size;default:-1"`
	Ram             int64  `json:"ram" gorm:"column:ram;default:-1"`
	OperatingSystem string `json:"operating_system" gorm:"column:operating_system;size:128"`

	LastJobID int64 `json:"last_job_id" gorm:"column:last_job_id;default:0"`

	ResourceCache `gorm:"embedded"`

	// 瞬态字段，每次实例化从 info 重新解析
	Status string `json:"status" gorm:"-"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (VirtualMachine) TableName() string {
	return "virtual_machine"
}
