package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/approval"
	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// Notifier pushes notifications to connected web UI clients. May be nil
// when the notify hub is disabled.
type Notifier interface {
	Broadcast(notification *types.Notification)
}

// PendingController exposes the pending device queue and the operator
// approve/reject decisions.
type PendingController struct {
	queue    *pending.Queue
	workflow *approval.Workflow
	notifier Notifier
}

func NewPendingController(queue *pending.Queue, workflow *approval.Workflow, notifier Notifier) *PendingController {
	return &PendingController{queue: queue, workflow: workflow, notifier: notifier}
}

func (ctrl *PendingController) notify(n *types.Notification) {
	if ctrl.notifier != nil {
		ctrl.notifier.Broadcast(n)
	}
}

// HandleList returns pending devices, most recently announced first.
// GET /api/hub/v1/pending
func (ctrl *PendingController) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.queue.List()))
}

// HandleApprove promotes a pending device into the registry.
// POST /api/hub/v1/pending/:id/approve
func (ctrl *PendingController) HandleApprove(c *gin.Context) {
	id := c.Param("id")

	var decision approval.Decision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	device, err := ctrl.workflow.Approve(id, decision)
	if err != nil {
		var vErr *types.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, tool.FastReturnError(vErr.Error()))
		case errors.Is(err, approval.ErrNotPending):
			c.JSON(http.StatusNotFound, tool.FastReturnError("Device not in pending queue: "+id))
		default:
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to approve device: "+err.Error()))
		}
		return
	}

	ctrl.notify(&types.Notification{
		Type:    types.NotifyTypeDeviceApproved,
		Title:   "Device approved",
		Message: device.Name,
		Data:    map[string]any{"device": device},
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(device))
}

// HandleReject drops a pending device without registering it.
// POST /api/hub/v1/pending/:id/reject
func (ctrl *PendingController) HandleReject(c *gin.Context) {
	id := c.Param("id")
	if !ctrl.workflow.Reject(id) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Device not in pending queue: "+id))
		return
	}

	ctrl.notify(&types.Notification{
		Type:  types.NotifyTypeDeviceRejected,
		Title: "Device rejected",
		Data:  map[string]any{"id": id},
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleClear empties the pending queue.
// DELETE /api/hub/v1/pending
func (ctrl *PendingController) HandleClear(c *gin.Context) {
	cleared := ctrl.workflow.ClearAll()
	if cleared > 0 {
		ctrl.notify(&types.Notification{
			Type:  types.NotifyTypeQueueCleared,
			Title: "Pending queue cleared",
			Data:  map[string]any{"cleared": cleared},
		})
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"cleared": cleared}))
}
