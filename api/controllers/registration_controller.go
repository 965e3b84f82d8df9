package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/registration"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// RegistrationController issues registration codes for devices that cannot
// announce themselves over UDP.
type RegistrationController struct {
	service *registration.Service
}

func NewRegistrationController(service *registration.Service) *RegistrationController {
	return &RegistrationController{service: service}
}

// HandleIssue registers a device draft and returns its one-time code.
// POST /api/hub/v1/register
func (ctrl *RegistrationController) HandleIssue(c *gin.Context) {
	var draft types.DeviceDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	device, code, err := ctrl.service.Issue(draft)
	if err != nil {
		var vErr *types.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(vErr.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to issue registration code: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"device": device,
		"code":   code,
	}))
}

// HandleCodeQR returns a PNG QR code for an active registration code so the
// operator can show it to a camera-equipped device.
// GET /api/hub/v1/register/qr?code=XXXXXXXX&size=200
func (ctrl *RegistrationController) HandleCodeQR(c *gin.Context) {
	raw := c.Query("code")
	if raw == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: code"))
		return
	}

	code, ok := ctrl.service.Lookup(raw)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Unknown registration code"))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(code.Code, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
