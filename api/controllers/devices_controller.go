package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/tool"
)

// DevicesController reads the durable device registry.
type DevicesController struct {
	store *registry.Store
}

func NewDevicesController(store *registry.Store) *DevicesController {
	return &DevicesController{store: store}
}

// HandleList returns all registered devices, approved drafts included.
// GET /api/hub/v1/devices
func (ctrl *DevicesController) HandleList(c *gin.Context) {
	devices, err := ctrl.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to list devices: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(devices))
}

// HandleGet returns one registered device by id.
// GET /api/hub/v1/devices/:id
func (ctrl *DevicesController) HandleGet(c *gin.Context) {
	device, err := ctrl.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, registry.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Device not found: "+c.Param("id")))
			return
		}
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to load device: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(device))
}
