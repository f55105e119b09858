package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursesync-backend/internal/services"
)

type SyncHandler struct {
	syncService services.SyncService
}

func NewSyncHandler(syncService services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

func (sh *SyncHandler) TriggerSync(c *gin.Context) {
	var in services.TriggerSyncInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	res, err := sh.syncService.TriggerSync(c.Request.Context(), in)
	if err != nil {
		RespondError(c, http.StatusBadGateway, "sync_start_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (sh *SyncHandler) GroupStatus(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_group_id", err)
		return
	}
	status, err := sh.syncService.GroupStatus(c.Request.Context(), groupID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "group_not_found", err)
		return
	}
	RespondOK(c, status)
}
