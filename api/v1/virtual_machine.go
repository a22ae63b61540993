package v1

import "time"

type VirtualMachineResponseData struct {
	Id              int64      `json:"id"`
	ClusterId       int64      `json:"clusterId"`
	Hostname        string     `json:"hostname"`
	OwnerId         int64      `json:"ownerId"`
	Status          string     `json:"status"`
	VirtualCpus     int        `json:"virtualCpus"`
	DiskSize        int        `json:"diskSize"`
	Ram             int        `json:"ram"`
	OperatingSystem string     `json:"operatingSystem"`
	LastJobId       int64      `json:"lastJobId"`
	CachedAt        *time.Time `json:"cachedAt"`
	Mtime           *time.Time `json:"mtime"`
	Error           string     `json:"error,omitempty"`
}

type VirtualMachineListResponseData struct {
	Total int64                        `json:"total"`
	Items []VirtualMachineResponseData `json:"items"`
}

type SetOwnerRequest struct {
	OwnerId int64 `json:"ownerId" binding:"required"`
}

type PowerResponseData struct {
	JobId int64 `json:"jobId"`
}
