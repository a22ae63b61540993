package v1

import "time"

type JobResponseData struct {
	Id         int64      `json:"id"`
	JobId      int64      `json:"jobId"`
	ClusterId  int64      `json:"clusterId"`
	TargetKind string     `json:"targetKind"`
	TargetId   int64      `json:"targetId"`
	Status     string     `json:"status"`
	Finished   bool       `json:"finished"`
	CachedAt   *time.Time `json:"cachedAt"`
	Error      string     `json:"error,omitempty"`
}
