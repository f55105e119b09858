package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursesync-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "me_failed", err)
		return
	}
	RespondOK(c, gin.H{"me": me})
}

func (uh *UserHandler) SaveAuthBundle(c *gin.Context) {
	var body struct {
		Cookies json.RawMessage `json:"cookies"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	bundle, err := uh.userService.SaveAuthBundle(c.Request.Context(), body.Cookies)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "auth_bundle_failed", err)
		return
	}
	RespondOK(c, gin.H{"auth_bundle_id": bundle.ID, "in_sync": bundle.InSync})
}
