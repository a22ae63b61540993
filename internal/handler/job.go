package handler

import (
	"net/http"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/model"
	"ganetisphere/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type JobHandler struct {
	*Handler
	jobService service.JobService
}

func NewJobHandler(handler *Handler, jobService service.JobService) *JobHandler {
	return &JobHandler{
		Handler:    handler,
		jobService: jobService,
	}
}

func jobResponse(job *model.Job) v1.JobResponseData {
	return v1.JobResponseData{
		Id:         job.Id,
		JobId:      job.JobID,
		ClusterId:  job.ClusterID,
		TargetKind: string(job.TargetKind),
		TargetId:   job.TargetID,
		Status:     job.Status,
		Finished:   model.IsTerminalJobStatus(job.Status),
		CachedAt:   job.CachedAt,
		Error:      job.Error,
	}
}

// GetJob godoc
// @Summary 任务详情
// @Description 未完结的任务每次读取都向远端实时查询
// @Tags 任务模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "任务ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) GetJob(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	job, err := h.jobService.GetJob(ctx, id)
	if err != nil {
		if err == v1.ErrJobNotFound {
			v1.HandleError(ctx, http.StatusNotFound, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("jobService.GetJob error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, jobResponse(job))
}

// RefreshJob godoc
// @Summary 强制刷新任务状态
// @Tags 任务模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "任务ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/jobs/{id}/refresh [post]
func (h *JobHandler) RefreshJob(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	job, err := h.jobService.RefreshJob(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("jobService.RefreshJob error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, jobResponse(job))
}
