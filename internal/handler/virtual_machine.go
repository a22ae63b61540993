package handler

import (
	"context"
	"net/http"
	"strconv"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/model"
	"ganetisphere/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type VirtualMachineHandler struct {
	*Handler
	vmService      service.VirtualMachineService
	consoleService service.ConsoleService
}

func NewVirtualMachineHandler(handler *Handler, vmService service.VirtualMachineService, consoleService service.ConsoleService) *VirtualMachineHandler {
	return &VirtualMachineHandler{
		Handler:        handler,
		vmService:      vmService,
		consoleService: consoleService,
	}
}

func vmResponse(vm *model.VirtualMachine) v1.VirtualMachineResponseData {
	return v1.VirtualMachineResponseData{
		Id:              vm.Id,
		ClusterId:       vm.ClusterID,
		Hostname:        vm.Hostname,
		OwnerId:         vm.OwnerID,
		Status:          vm.Status,
		VirtualCpus:     int(vm.VirtualCpus),
		DiskSize:        int(vm.DiskSize),
		Ram:             int(vm.Ram),
		OperatingSystem: vm.OperatingSystem,
		LastJobId:       vm.LastJobID,
		CachedAt:        vm.CachedAt,
		Mtime:           vm.Mtime,
		Error:           vm.Error,
	}
}

// ListVirtualMachines godoc
// @Summary 虚拟机列表
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param cluster_id query int true "集群ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms [get]
func (h *VirtualMachineHandler) ListVirtualMachines(ctx *gin.Context) {
	clusterID, err := strconv.ParseInt(ctx.Query("cluster_id"), 10, 64)
	if err != nil || clusterID <= 0 {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	vms, err := h.vmService.ListVirtualMachines(ctx, clusterID)
	if err != nil {
		h.logger.WithContext(ctx).Error("vmService.ListVirtualMachines error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	items := make([]v1.VirtualMachineResponseData, 0, len(vms))
	for _, vm := range vms {
		items = append(items, vmResponse(vm))
	}
	v1.HandleSuccess(ctx, v1.VirtualMachineListResponseData{Total: int64(len(items)), Items: items})
}

// GetVirtualMachine godoc
// @Summary 虚拟机详情
// @Description 读取会触发惰性刷新
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id} [get]
func (h *VirtualMachineHandler) GetVirtualMachine(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	vm, err := h.vmService.GetVirtualMachine(ctx, id)
	if err != nil {
		if err == v1.ErrVMNotFound {
			v1.HandleError(ctx, http.StatusNotFound, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("vmService.GetVirtualMachine error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, vmResponse(vm))
}

// RefreshVirtualMachine godoc
// @Summary 强制刷新虚拟机缓存
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/refresh [post]
func (h *VirtualMachineHandler) RefreshVirtualMachine(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	vm, err := h.vmService.RefreshVirtualMachine(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("vmService.RefreshVirtualMachine error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, vmResponse(vm))
}

// SetOwner godoc
// @Summary 变更虚拟机归属
// @Description 归属变更会在下一次持久化时同步校正远端实例标签
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Param request body v1.SetOwnerRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/owner [put]
func (h *VirtualMachineHandler) SetOwner(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	req := new(v1.SetOwnerRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	if err := h.vmService.SetOwner(ctx, id, req.OwnerId); err != nil {
		if err == v1.ErrQuotaExceeded {
			v1.HandleError(ctx, http.StatusForbidden, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("vmService.SetOwner error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, nil)
}

// ShutdownVirtualMachine godoc
// @Summary 关机
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/shutdown [post]
func (h *VirtualMachineHandler) ShutdownVirtualMachine(ctx *gin.Context) {
	h.powerOp(ctx, h.vmService.Shutdown)
}

// StartupVirtualMachine godoc
// @Summary 开机
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/startup [post]
func (h *VirtualMachineHandler) StartupVirtualMachine(ctx *gin.Context) {
	h.powerOp(ctx, h.vmService.Startup)
}

// RebootVirtualMachine godoc
// @Summary 重启
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/reboot [post]
func (h *VirtualMachineHandler) RebootVirtualMachine(ctx *gin.Context) {
	h.powerOp(ctx, h.vmService.Reboot)
}

func (h *VirtualMachineHandler) powerOp(ctx *gin.Context, op func(ctx context.Context, id int64) (*model.Job, error)) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	job, err := op(ctx, id)
	if err != nil {
		if err == v1.ErrVMNotFound {
			v1.HandleError(ctx, http.StatusNotFound, err, nil)
			return
		}
		h.logger.WithContext(ctx).Error("vmService power operation error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, v1.PowerResponseData{JobId: job.Id})
}

// GetVMConsole godoc
// @Summary 获取虚拟机控制台连接信息
// @Description 返回短期 ws_token，供同域 WebSocket 代理使用
// @Tags 虚拟机模块
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "虚拟机ID"
// @Success 200 {object} v1.Response
// @Router /api/v1/vms/{id}/console [post]
func (h *VirtualMachineHandler) GetVMConsole(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	data, err := h.consoleService.GetConsole(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error("consoleService.GetConsole error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}

	v1.HandleSuccess(ctx, data)
}

// VMConsoleWS godoc
// @Summary 虚拟机控制台 WebSocket 代理
// @Description 凭 ws_token 建立到实例 VNC 端口的桥接，供 noVNC 直接连接
// @Tags 虚拟机模块
// @Security Bearer
// @Param token query string true "ws_token（由 /api/v1/vms/{id}/console 返回）"
// @Router /api/v1/vms/console/ws [get]
func (h *VirtualMachineHandler) VMConsoleWS(ctx *gin.Context) {
	token := ctx.Query("token")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	clientConn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}
	defer clientConn.Close()

	vncConn, err := h.consoleService.DialConsole(ctx, token)
	if err != nil {
		_ = clientConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid console token"))
		return
	}
	defer vncConn.Close()

	errCh := make(chan error, 2)
	go func() {
		for {
			_, msg, err := clientConn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if _, err := vncConn.Write(msg); err != nil {
				errCh <- err
				return
			}
		}
	}()
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := vncConn.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			if err := clientConn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				errCh <- err
				return
			}
		}
	}()

	<-errCh
}
