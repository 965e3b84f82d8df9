package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/tool"
)

// DiscoveryController toggles the hub's discovery beacon.
type DiscoveryController struct {
	listener *broadcast.Listener
}

func NewDiscoveryController(listener *broadcast.Listener) *DiscoveryController {
	return &DiscoveryController{listener: listener}
}

// HandleEnable starts beacon broadcasting. Idempotent.
// POST /api/hub/v1/discovery/enable
func (ctrl *DiscoveryController) HandleEnable(c *gin.Context) {
	if !ctrl.listener.Available() {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError("Discovery transport unavailable"))
		return
	}
	ctrl.listener.Enable()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"enabled": true}))
}

// HandleDisable stops beacon broadcasting. The listener keeps receiving so
// already-announced devices stay actionable. Idempotent.
// POST /api/hub/v1/discovery/disable
func (ctrl *DiscoveryController) HandleDisable(c *gin.Context) {
	ctrl.listener.Disable()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"enabled": false}))
}
