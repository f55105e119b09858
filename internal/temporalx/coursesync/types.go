// Package coursesync is the durable orchestration of one user's sync: one
// workflow per invocation, one JobSyncGroup row, and a scrape -> extract ->
// resolve chain fanned out per enrolled course.
package coursesync

import (
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowName = "course_sync"

	ActivityCreateSyncJobs    = "course_sync_create_jobs"
	ActivityScrapeCourse      = "course_sync_scrape_course"
	ActivityFindAssignments   = "course_sync_find_assignments"
	ActivityFindDueDates      = "course_sync_find_due_dates"
	ActivityMarkGroupComplete = "course_sync_mark_group_complete"
)

// Application error types the retry policy treats as non-retryable.
const (
	ErrTypeMalformedInput = "MalformedInput"
	ErrTypeAuthFailure    = "AuthFailure"
)

// PipelineInput starts one sync. CourseIDs optionally restricts the run to
// a subset of the user's enrollments; empty means all of them.
type PipelineInput struct {
	UserID       uuid.UUID   `json:"user_id"`
	CourseIDs    []uuid.UUID `json:"course_ids,omitempty"`
	ForceRefresh bool        `json:"force_refresh,omitempty"`
}

// JobRef identifies one (course, source) unit of the group.
type JobRef struct {
	JobSyncID uuid.UUID `json:"job_sync_id"`
	CourseID  uuid.UUID `json:"course_id"`
	SourceID  uuid.UUID `json:"source_id"`
}

type CreateJobsResult struct {
	GroupID uuid.UUID `json:"group_id"`
	Jobs    []JobRef  `json:"jobs"`
}

type ScrapeInput struct {
	JobSyncID    uuid.UUID `json:"job_sync_id"`
	UserID       uuid.UUID `json:"user_id"`
	ForceRefresh bool      `json:"force_refresh,omitempty"`
}

type ScrapeResult struct {
	JobSyncID            uuid.UUID `json:"job_sync_id"`
	PagesTotal           int       `json:"pages_total"`
	PagesNew             int       `json:"pages_new"`
	PagesChanged         int       `json:"pages_changed"`
	PagesUnchanged       int       `json:"pages_unchanged"`
	PagesFailed          int       `json:"pages_failed"`
	PagesWithAssignments int       `json:"pages_with_assignments"`
}

type FindAssignmentsInput struct {
	JobSyncID uuid.UUID `json:"job_sync_id"`
}

type FindAssignmentsResult struct {
	JobSyncID      uuid.UUID   `json:"job_sync_id"`
	AssignmentIDs  []uuid.UUID `json:"assignment_ids"`
	PagesProcessed int         `json:"pages_processed"`
	PagesFailed    int         `json:"pages_failed"`
	Created        int         `json:"created"`
	PathsAppended  int         `json:"paths_appended"`
}

type FindDueDatesInput struct {
	JobSyncID     uuid.UUID   `json:"job_sync_id"`
	AssignmentIDs []uuid.UUID `json:"assignment_ids"`
}

type FindDueDatesResult struct {
	JobSyncID    uuid.UUID `json:"job_sync_id"`
	Resolved     int       `json:"resolved"`
	Placeholders int       `json:"placeholders"`
	Failed       int       `json:"failed"`
}

// CourseOutcome is the terminal state of one course's chain, one result or
// error per stage. A stage that never ran because an earlier one failed
// records a skipped error, so every course always reports all three stages.
type CourseOutcome struct {
	JobSyncID        uuid.UUID              `json:"job_sync_id"`
	CourseID         uuid.UUID              `json:"course_id"`
	Scrape           *ScrapeResult          `json:"scrape,omitempty"`
	ScrapeError      string                 `json:"scrape_error,omitempty"`
	Assignments      *FindAssignmentsResult `json:"assignments,omitempty"`
	AssignmentsError string                 `json:"assignments_error,omitempty"`
	DueDates         *FindDueDatesResult    `json:"due_dates,omitempty"`
	DueDatesError    string                 `json:"due_dates_error,omitempty"`
	FailedStage      string                 `json:"failed_stage,omitempty"`
}

type PipelineResult struct {
	GroupID       uuid.UUID       `json:"group_id"`
	Courses       []CourseOutcome `json:"courses"`
	ScrapeOK      int             `json:"scrape_ok"`
	AssignmentsOK int             `json:"assignments_ok"`
	DueDatesOK    int             `json:"due_dates_ok"`
	TotalErrors   int             `json:"total_errors"`
	Duration      time.Duration   `json:"duration"`
}
