package v1

import "time"

type CreateClusterRequest struct {
	Hostname    string `json:"hostname" binding:"required" example:"ganeti.example.org"`
	Slug        string `json:"slug" example:"ganeti"`
	Port        int    `json:"port" example:"5080"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	VirtualCpus int    `json:"virtualCpus"`
	Disk        int    `json:"disk"`
	Ram         int    `json:"ram"`
}

type UpdateClusterRequest struct {
	Hostname    string `json:"hostname"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Port        int    `json:"port"`
	VirtualCpus *int   `json:"virtualCpus"`
	Disk        *int   `json:"disk"`
	Ram         *int   `json:"ram"`
	IsEnabled   *int8  `json:"isEnabled"`
}

type ClusterResponseData struct {
	Id          int64      `json:"id"`
	Hostname    string     `json:"hostname"`
	Slug        string     `json:"slug"`
	Port        int        `json:"port"`
	Description string     `json:"description"`
	IsEnabled   int8       `json:"isEnabled"`
	Software    string     `json:"software"`
	Version     string     `json:"version"`
	CachedAt    *time.Time `json:"cachedAt"`
	Mtime       *time.Time `json:"mtime"`
	Error       string     `json:"error,omitempty"`
}

type ClusterListResponseData struct {
	Total int64                 `json:"total"`
	Items []ClusterResponseData `json:"items"`
}

type ClusterQuotaResponseData struct {
	VirtualCpus int `json:"virtualCpus"`
	Disk        int `json:"disk"`
	Ram         int `json:"ram"`
	UsedCpus    int `json:"usedCpus"`
	UsedDisk    int `json:"usedDisk"`
	UsedRam     int `json:"usedRam"`
}

type SyncResponseData struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}
