package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/registration"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// DeviceApprover is the slice of the registry the connect handshake needs.
type DeviceApprover interface {
	MarkApproved(id, ipAddress string) error
}

// ConnectController handles the device-facing side of onboarding: the code
// handshake and the HTTP announcement fallback.
type ConnectController struct {
	service  *registration.Service
	store    DeviceApprover
	listener *broadcast.Listener
	self     *types.AnnounceMessage
}

func NewConnectController(service *registration.Service, store DeviceApprover, listener *broadcast.Listener, self *types.AnnounceMessage) *ConnectController {
	return &ConnectController{service: service, store: store, listener: listener, self: self}
}

type connectRequest struct {
	Code            string `json:"code"`
	MacAddress      string `json:"macAddress,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

// HandleConnect consumes a registration code and approves the bound draft.
// The consume is atomic, so two devices racing on the same code see exactly
// one success and one conflict.
// POST /api/device/v1/connect
func (ctrl *ConnectController) HandleConnect(c *gin.Context) {
	var request connectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if request.Code == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("code is required"))
		return
	}

	deviceID, err := ctrl.service.Consume(request.Code)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrCodeNotFound):
			c.JSON(http.StatusNotFound, tool.FastReturnError("Unknown registration code"))
		case errors.Is(err, types.ErrCodeExpired):
			c.JSON(http.StatusGone, tool.FastReturnError("Registration code expired"))
		case errors.Is(err, types.ErrCodeAlreadyUsed):
			c.JSON(http.StatusConflict, tool.FastReturnError("Registration code already used"))
		default:
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to consume registration code: "+err.Error()))
		}
		return
	}

	if err := ctrl.store.MarkApproved(deviceID, c.ClientIP()); err != nil {
		// The handshake did not complete, so the code must stay redeemable.
		ctrl.service.Release(request.Code)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to approve device: "+err.Error()))
		return
	}
	tool.DefaultLogger.Infof("Device %s connected with registration code", deviceID)

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"deviceId": deviceID,
		"hub":      ctrl.self,
	}))
}

// HandleAnnounce accepts an announcement over HTTP for devices on networks
// where multicast does not reach the hub. Same upsert path as the UDP loop.
// POST /api/device/v1/announce
func (ctrl *ConnectController) HandleAnnounce(c *gin.Context) {
	var msg types.AnnounceMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if msg.ID == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("id is required"))
		return
	}
	if msg.Hub || msg.ID == ctrl.self.ID {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Hubs cannot announce to each other"))
		return
	}
	// Same filter as the UDP receive loop: only announce messages are queued.
	if !msg.Announce {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Not an announce message"))
		return
	}

	ctrl.listener.HandleAnnouncement(&msg, c.ClientIP())
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.self))
}
