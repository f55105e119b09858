package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
	"github.com/yungbote/coursesync-backend/internal/temporalx"
	"github.com/yungbote/coursesync-backend/internal/temporalx/coursesync"
)

type TriggerSyncInput struct {
	CourseIDs    []uuid.UUID `json:"course_ids,omitempty"`
	ForceRefresh bool        `json:"force_refresh,omitempty"`
}

type TriggerSyncResult struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

type JobSyncStatus struct {
	JobSyncID uuid.UUID       `json:"job_sync_id"`
	CourseID  uuid.UUID       `json:"course_id"`
	SourceID  uuid.UUID       `json:"source_id"`
	Scraped   bool            `json:"scraped"`
	Stats     *pagetree.Stats `json:"stats,omitempty"`
}

type GroupStatus struct {
	GroupID     uuid.UUID       `json:"group_id"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Jobs        []JobSyncStatus `json:"jobs"`
}

// SyncService starts the durable pipeline and reports its progress. The
// workflow owns group creation, so the trigger returns workflow ids and the
// status endpoint is keyed by group id.
type SyncService interface {
	TriggerSync(ctx context.Context, in TriggerSyncInput) (TriggerSyncResult, error)
	GroupStatus(ctx context.Context, groupID uuid.UUID) (*GroupStatus, error)
}

type syncService struct {
	db     *gorm.DB
	log    *logger.Logger
	tc     temporalsdkclient.Client
	groups repos.JobSyncGroupRepo
	jobs   repos.JobSyncRepo
}

func NewSyncService(db *gorm.DB, log *logger.Logger, tc temporalsdkclient.Client, groups repos.JobSyncGroupRepo, jobs repos.JobSyncRepo) SyncService {
	return &syncService{
		db:     db,
		log:    log.With("service", "SyncService"),
		tc:     tc,
		groups: groups,
		jobs:   jobs,
	}
}

func (s *syncService) TriggerSync(ctx context.Context, in TriggerSyncInput) (TriggerSyncResult, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return TriggerSyncResult{}, err
	}
	if s.tc == nil {
		return TriggerSyncResult{}, fmt.Errorf("sync pipeline is not available")
	}

	cfg := temporalx.LoadConfig()
	run, err := coursesync.Start(ctx, s.tc, cfg.TaskQueue, coursesync.PipelineInput{
		UserID:       userID,
		CourseIDs:    in.CourseIDs,
		ForceRefresh: in.ForceRefresh,
	})
	if err != nil {
		return TriggerSyncResult{}, fmt.Errorf("start sync workflow: %w", err)
	}

	s.log.Info("sync triggered", "user_id", userID, "workflow_id", run.GetID(), "courses", len(in.CourseIDs))
	return TriggerSyncResult{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (s *syncService) GroupStatus(ctx context.Context, groupID uuid.UUID) (*GroupStatus, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.From(ctx)

	group, err := s.groups.GetByID(dbc, groupID)
	if err != nil {
		return nil, fmt.Errorf("load sync group: %w", err)
	}
	if group == nil || group.UserID != userID {
		return nil, fmt.Errorf("sync group not found")
	}

	jobs, err := s.jobs.ListByGroup(dbc, groupID)
	if err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}

	out := &GroupStatus{GroupID: group.ID, CompletedAt: group.CompletedAt}
	for _, j := range jobs {
		js := JobSyncStatus{
			JobSyncID: j.ID,
			CourseID:  j.CourseID,
			SourceID:  j.SourceID,
			Scraped:   len(j.PageTree) > 0,
		}
		if js.Scraped {
			if tree, perr := pagetree.Parse(j.PageTree); perr == nil {
				stats := tree.ComputeStats()
				js.Stats = &stats
			}
		}
		out.Jobs = append(out.Jobs, js)
	}
	return out, nil
}
