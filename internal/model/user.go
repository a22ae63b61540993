package model

import (
	"time"
)

type User struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId     string    `json:"user_id" gorm:"column:user_id;uniqueIndex;size:32"`
	Username   string    `json:"username" gorm:"column:username;uniqueIndex;size:64"`
	Password   string    `json:"-" gorm:"column:password;size:128"`
	Nickname   string    `json:"nickname" gorm:"column:nickname;size:64"`
	Email      string    `json:"email" gorm:"column:email;size:128"`
	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (User) TableName() string {
	return "user"
}

// ClusterUser 可以持有虚拟机的主体（用户或组织）
// 虚拟机的 owner_id 指向这里；归属信息同时以标签形式写回远端
type ClusterUser struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"column:name;size:128"`
	UserId     string    `json:"user_id" gorm:"column:user_id;size:32"` // 对应 user 表，组织类主体为空
	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (ClusterUser) TableName() string {
	return "cluster_user"
}
