package handler

import (
	"net/http"
	"strconv"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/model"
	"ganetisphere/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClusterHandler struct {
	*Handler
	clusterService service.ClusterService
}

func NewClusterHandler(handler *Handler, clusterService service.ClusterService) *ClusterHandler {
	return &ClusterHandler{
		Handler:        handler,
		clusterService: clusterService,
	}
}

func clusterResponse(cluster *model.Cluster) v1.ClusterResponseData {
	return v1.ClusterResponseData{
		Id:          cluster.Id,
		Hostname:    cluster.Hostname,
		Slug:        cluster.Slug,
		Port:        cluster.Port,
		Description: cluster.Description,
		IsEnabled:   cluster.IsEnabled,
		Software:    cluster.Software,
		Version:     cluster.Version,
		CachedAt:    cluster.CachedAt,
		Mtime:       cluster.Mtime,
		Error:       cluster.Error,
	}
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return 0, false
	}
	return id, true
}

// ListClusters godoc
// @Summary 集群列表
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters [get]
func (h *ClusterHandler) ListClusters(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	clusters, total, err := h.clusterService.ListClusters(ctx, page, pageSize)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.ListClusters error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	items := make([]v1.ClusterResponseData, 0, len(clusters))
	for _, cluster := range clusters {
		items = append(items, clusterResponse(cluster))
	}
	v1.HandleSuccess(ctx, v1.ClusterListResponseData{Total: total, Items: items})
}

// GetCluster godoc
// @Summary 集群详情
// @Description 读取会触发惰性刷新，详情里的 error 字段表示最近一次远端拉取失败
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id} [get]
func (h *ClusterHandler) GetCluster(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	cluster, err := h.clusterService.GetCluster(ctx, id)
	if err != nil {
		if err == v1.ErrClusterNotFound {
			v1.HandleError(ctx, http.StatusNotFound, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("clusterService.GetCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, clusterResponse(cluster))
}

// CreateCluster godoc
// @Summary 注册集群
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.CreateClusterRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters [post]
func (h *ClusterHandler) CreateCluster(ctx *gin.Context) {
	req := new(v1.CreateClusterRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	cluster, err := h.clusterService.CreateCluster(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.CreateCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, clusterResponse(cluster))
}

// UpdateCluster godoc
// @Summary 更新集群
// @Description 凭据变更会重算连接指纹并同步到该集群下所有记录
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Param request body v1.UpdateClusterRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id} [put]
func (h *ClusterHandler) UpdateCluster(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	req := new(v1.UpdateClusterRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	if err := h.clusterService.UpdateCluster(ctx, id, req); err != nil {
		h.logger.WithContext(ctx).Error("clusterService.UpdateCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, nil)
}

// DeleteCluster godoc
// @Summary 删除集群
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id} [delete]
func (h *ClusterHandler) DeleteCluster(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := h.clusterService.DeleteCluster(ctx, id); err != nil {
		h.logger.WithContext(ctx).Error("clusterService.DeleteCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, nil)
}

// RefreshCluster godoc
// @Summary 强制刷新集群缓存
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/refresh [post]
func (h *ClusterHandler) RefreshCluster(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	cluster, err := h.clusterService.RefreshCluster(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.RefreshCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, clusterResponse(cluster))
}

// VerifyCluster godoc
// @Summary 校验集群凭据
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/verify [post]
func (h *ClusterHandler) VerifyCluster(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := h.clusterService.VerifyCluster(ctx, id); err != nil {
		if err == v1.ErrClusterUnreachable {
			v1.HandleError(ctx, http.StatusBadGateway, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("clusterService.VerifyCluster error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, nil)
}

// SyncVirtualMachines godoc
// @Summary 同步虚拟机记录
// @Description 按主机名做集合差，新增远端已有的记录；remove=true 时同时删除远端已不存在的记录
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Param remove query bool false "是否删除远端已不存在的记录" default(false)
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/sync [post]
func (h *ClusterHandler) SyncVirtualMachines(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	remove := ctx.Query("remove") == "true"

	added, removed, err := h.clusterService.SyncVirtualMachines(ctx, id, remove)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.SyncVirtualMachines error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, v1.SyncResponseData{Added: added, Removed: removed})
}

// GetOrphans godoc
// @Summary 本地与远端的差异清单
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/orphans [get]
func (h *ClusterHandler) GetOrphans(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	missingRemote, err := h.clusterService.MissingInGaneti(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.MissingInGaneti error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	missingLocal, err := h.clusterService.MissingInDB(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.MissingInDB error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, map[string]interface{}{
		"missing_in_remote": missingRemote,
		"missing_in_db":     missingLocal,
	})
}

// ListNodes godoc
// @Summary 集群节点列表（读穿透）
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/nodes [get]
func (h *ClusterHandler) ListNodes(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	nodes, err := h.clusterService.Nodes(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.Nodes error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, nodes)
}

// GetNode godoc
// @Summary 节点详情（读穿透）
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Param name path string true "节点名"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/nodes/{name} [get]
func (h *ClusterHandler) GetNode(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	node, err := h.clusterService.Node(ctx, id, ctx.Param("name"))
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.Node error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, node)
}

// GetQuota godoc
// @Summary 集群配额与已用量
// @Tags 集群模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "集群ID"
// @Param owner_id query int true "归属者ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/clusters/{id}/quota [get]
func (h *ClusterHandler) GetQuota(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	ownerID, err := strconv.ParseInt(ctx.Query("owner_id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	quota, err := h.clusterService.Quota(ctx, id, ownerID)
	if err != nil {
		h.logger.WithContext(ctx).Error("clusterService.Quota error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, quota)
}
