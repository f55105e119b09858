package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursesync-backend/internal/services"
)

type AssignmentHandler struct {
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

func (ah *AssignmentHandler) List(c *gin.Context) {
	list, err := ah.assignmentService.ListForUser(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"assignments": list})
}

func (ah *AssignmentHandler) ListDueDates(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	list, err := ah.assignmentService.ListDueDates(c.Request.Context(), assignmentID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "assignment_not_found", err)
		return
	}
	RespondOK(c, gin.H{"due_dates": list})
}

func (ah *AssignmentHandler) MarkCompleted(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	if err := ah.assignmentService.MarkCompleted(c.Request.Context(), assignmentID); err != nil {
		RespondError(c, http.StatusBadRequest, "complete_failed", err)
		return
	}
	RespondOK(c, gin.H{"completed": true})
}

func (ah *AssignmentHandler) SetDueDateOverride(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	var body struct {
		DueDateID *uuid.UUID `json:"due_date_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := ah.assignmentService.SetDueDateOverride(c.Request.Context(), assignmentID, body.DueDateID); err != nil {
		RespondError(c, http.StatusBadRequest, "override_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}
