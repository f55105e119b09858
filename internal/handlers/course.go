package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursesync-backend/internal/services"
)

type CourseHandler struct {
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

func (ch *CourseHandler) List(c *gin.Context) {
	list, err := ch.courseService.ListForUser(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": list})
}
