package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/status"
	"github.com/hearthlab/hearth-hub-go/tool"
)

// StatusController serves the aggregate discovery status.
type StatusController struct {
	producer *status.Producer
}

func NewStatusController(producer *status.Producer) *StatusController {
	return &StatusController{producer: producer}
}

// HandleStatus returns the current discovery status snapshot.
// GET /api/hub/v1/status
func (ctrl *StatusController) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.producer.Snapshot()))
}
