package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

// DueDateView is one due-date candidate as shown to the user.
type DueDateView struct {
	ID          uuid.UUID  `json:"id"`
	Date        *time.Time `json:"date,omitempty"`
	DateCertain bool       `json:"date_certain"`
	TimeCertain bool       `json:"time_certain"`
	Confidence  float64    `json:"confidence"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Chosen      bool       `json:"chosen"`
}

// AssignmentView joins the shared assignment with the requesting user's
// overlay. The effective due date is the user's override when set,
// otherwise the pipeline's choice. DueDateConflicts counts distinct
// concrete dates among the candidates; more than one means the sources
// disagree.
type AssignmentView struct {
	ID               uuid.UUID    `json:"id"`
	CourseID         uuid.UUID    `json:"course_id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	SourceURL        string       `json:"source_url"`
	DueDate          *DueDateView `json:"due_date,omitempty"`
	DueDateConflicts int          `json:"due_date_conflicts"`
	Completed        bool         `json:"completed"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

type AssignmentService interface {
	ListForUser(ctx context.Context) ([]AssignmentView, error)
	ListDueDates(ctx context.Context, assignmentID uuid.UUID) ([]DueDateView, error)
	MarkCompleted(ctx context.Context, assignmentID uuid.UUID) error
	SetDueDateOverride(ctx context.Context, assignmentID uuid.UUID, dueDateID *uuid.UUID) error
}

type assignmentService struct {
	db              *gorm.DB
	log             *logger.Logger
	enrollments     repos.EnrollmentRepo
	assignments     repos.AssignmentRepo
	dueDates        repos.DueDateRepo
	userAssignments repos.UserAssignmentRepo
}

func NewAssignmentService(
	db *gorm.DB,
	log *logger.Logger,
	enrollments repos.EnrollmentRepo,
	assignments repos.AssignmentRepo,
	dueDates repos.DueDateRepo,
	userAssignments repos.UserAssignmentRepo,
) AssignmentService {
	return &assignmentService{
		db:              db,
		log:             log.With("service", "AssignmentService"),
		enrollments:     enrollments,
		assignments:     assignments,
		dueDates:        dueDates,
		userAssignments: userAssignments,
	}
}

func (s *assignmentService) ListForUser(ctx context.Context) ([]AssignmentView, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.From(ctx)

	courseIDs, err := s.enrolledCourseIDs(dbc, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.assignments.ListByCourses(dbc, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if len(list) == 0 {
		return []AssignmentView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	candidates, err := s.dueDates.ListByAssignments(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("list due dates: %w", err)
	}
	byAssignment := map[uuid.UUID][]*types.DueDate{}
	byID := map[uuid.UUID]*types.DueDate{}
	for _, d := range candidates {
		byAssignment[d.AssignmentID] = append(byAssignment[d.AssignmentID], d)
		byID[d.ID] = d
	}

	overlays, err := s.userAssignments.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list user assignments: %w", err)
	}
	overlayByAssignment := map[uuid.UUID]*types.UserAssignment{}
	for _, ua := range overlays {
		overlayByAssignment[ua.AssignmentID] = ua
	}

	out := make([]AssignmentView, 0, len(list))
	for _, a := range list {
		view := AssignmentView{
			ID:               a.ID,
			CourseID:         a.CourseID,
			Title:            a.Title,
			Description:      a.Description,
			SourceURL:        a.SourceURL,
			DueDateConflicts: countDistinctDates(byAssignment[a.ID]),
		}

		chosenID := a.ChosenDueDateID
		if ua := overlayByAssignment[a.ID]; ua != nil {
			if ua.ChosenDueDateID != nil {
				chosenID = ua.ChosenDueDateID
			}
			view.CompletedAt = ua.CompletedAt
			view.Completed = ua.CompletedAt != nil
		}
		if chosenID != nil {
			if d := byID[*chosenID]; d != nil {
				dv := toDueDateView(d, true)
				view.DueDate = &dv
			}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *assignmentService) ListDueDates(ctx context.Context, assignmentID uuid.UUID) ([]DueDateView, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.From(ctx)

	a, err := s.guardAssignment(dbc, userID, assignmentID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.dueDates.ListByAssignments(dbc, []uuid.UUID{a.ID})
	if err != nil {
		return nil, fmt.Errorf("list due dates: %w", err)
	}

	chosenID := a.ChosenDueDateID
	if ua, err := s.userAssignments.GetOrCreate(dbc, userID, a.ID); err == nil && ua != nil && ua.ChosenDueDateID != nil {
		chosenID = ua.ChosenDueDateID
	}

	out := make([]DueDateView, 0, len(candidates))
	for _, d := range candidates {
		out = append(out, toDueDateView(d, chosenID != nil && *chosenID == d.ID))
	}
	return out, nil
}

func (s *assignmentService) MarkCompleted(ctx context.Context, assignmentID uuid.UUID) error {
	userID, err := userFromContext(ctx)
	if err != nil {
		return err
	}
	dbc := dbctx.From(ctx)

	if _, err := s.guardAssignment(dbc, userID, assignmentID); err != nil {
		return err
	}
	if _, err := s.userAssignments.GetOrCreate(dbc, userID, assignmentID); err != nil {
		return fmt.Errorf("ensure user assignment: %w", err)
	}
	if err := s.userAssignments.MarkCompleted(dbc, userID, assignmentID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *assignmentService) SetDueDateOverride(ctx context.Context, assignmentID uuid.UUID, dueDateID *uuid.UUID) error {
	userID, err := userFromContext(ctx)
	if err != nil {
		return err
	}
	dbc := dbctx.From(ctx)

	if _, err := s.guardAssignment(dbc, userID, assignmentID); err != nil {
		return err
	}
	if dueDateID != nil {
		candidates, err := s.dueDates.ListByAssignments(dbc, []uuid.UUID{assignmentID})
		if err != nil {
			return fmt.Errorf("list due dates: %w", err)
		}
		found := false
		for _, d := range candidates {
			if d.ID == *dueDateID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("due date does not belong to assignment")
		}
	}
	if _, err := s.userAssignments.GetOrCreate(dbc, userID, assignmentID); err != nil {
		return fmt.Errorf("ensure user assignment: %w", err)
	}
	if err := s.userAssignments.SetChosenDueDate(dbc, userID, assignmentID, dueDateID); err != nil {
		return fmt.Errorf("set due date override: %w", err)
	}
	return nil
}

// guardAssignment loads the assignment and checks the user is enrolled in
// its course.
func (s *assignmentService) guardAssignment(dbc dbctx.Context, userID, assignmentID uuid.UUID) (*types.Assignment, error) {
	a, err := s.assignments.GetByID(dbc, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("assignment not found")
	}
	courseIDs, err := s.enrolledCourseIDs(dbc, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range courseIDs {
		if id == a.CourseID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("assignment not found")
}

func (s *assignmentService) enrolledCourseIDs(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	enrollments, err := s.enrollments.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, e.CourseID)
	}
	return out, nil
}

func toDueDateView(d *types.DueDate, chosen bool) DueDateView {
	return DueDateView{
		ID:          d.ID,
		Date:        d.Date,
		DateCertain: d.DateCertain,
		TimeCertain: d.TimeCertain,
		Confidence:  d.Confidence,
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
		Chosen:      chosen,
	}
}

func countDistinctDates(candidates []*types.DueDate) int {
	seen := map[time.Time]bool{}
	for _, d := range candidates {
		if d.Date != nil {
			seen[d.Date.UTC().Truncate(24*time.Hour)] = true
		}
	}
	return len(seen)
}
