package model

import (
	"time"
)

// TargetKind 任务目标实体的类型标记，取值限定在一个封闭集合内
type TargetKind string

const (
	TargetKindCluster TargetKind = "cluster"
	TargetKindVM      TargetKind = "vm"
)

// Ganeti 任务状态
const (
	JobStatusQueued   = "queued"
	JobStatusWaiting  = "waiting"
	JobStatusRunning  = "running"
	JobStatusSuccess  = "success"
	JobStatusError    = "error"
	JobStatusCanceled = "canceled"
)

// IsTerminalJobStatus 判断远端任务状态是否为终态
func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusSuccess, JobStatusError, JobStatusCanceled:
		return true
	}
	return false
}

// Job 远端集群上运行的任务（创建/删除虚拟机等）
// 创建时 ignore_cache 置位：pending 任务每次访问都实时拉取；
// 任务进入终态后清除该标记，此后按普通的缓存窗口策略刷新
type Job struct {
	Id          int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	JobID       int64      `json:"job_id" gorm:"column:job_id;index"` // 远端任务 ID
	ClusterID   int64      `json:"cluster_id" gorm:"column:cluster_id;index"`
	ClusterHash string     `json:"-" gorm:"column:cluster_hash;size:40"`
	TargetKind  TargetKind `json:"target_kind" gorm:"column:target_kind;size:16"`
	TargetID    int64      `json:"target_id" gorm:"column:target_id"`
	Status      string     `json:"status" gorm:"column:status;size:32"`

	ResourceCache `gorm:"embedded"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (Job) TableName() string {
	return "ganeti_job"
}
