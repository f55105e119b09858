package syncjobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type JobSyncRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobSync) ([]*types.JobSync, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobSync, error)
	ListByGroup(dbc dbctx.Context, groupID uuid.UUID) ([]*types.JobSync, error)
	UpdatePageTree(dbc dbctx.Context, id uuid.UUID, tree datatypes.JSON) error
	// GetPreviousWithTree finds the most recent earlier sync of the same
	// (course, source) that produced a page tree; its hashes drive change
	// detection.
	GetPreviousWithTree(dbc dbctx.Context, courseID, sourceID, excludeID uuid.UUID) (*types.JobSync, error)
}

type jobSyncRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobSyncRepo(db *gorm.DB, baseLog *logger.Logger) JobSyncRepo {
	return &jobSyncRepo{db: db, log: baseLog.With("repo", "JobSyncRepo")}
}

func (r *jobSyncRepo) Create(dbc dbctx.Context, jobs []*types.JobSync) ([]*types.JobSync, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.JobSync{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobSyncRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobSync, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var j types.JobSync
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobSyncRepo) ListByGroup(dbc dbctx.Context, groupID uuid.UUID) ([]*types.JobSync, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobSync
	if groupID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("job_sync_group_id = ?", groupID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobSyncRepo) UpdatePageTree(dbc dbctx.Context, id uuid.UUID, tree datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.JobSync{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"page_tree":  tree,
			"updated_at": time.Now(),
		}).Error
}

func (r *jobSyncRepo) GetPreviousWithTree(dbc dbctx.Context, courseID, sourceID, excludeID uuid.UUID) (*types.JobSync, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if courseID == uuid.Nil || sourceID == uuid.Nil {
		return nil, nil
	}
	var j types.JobSync
	q := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND source_id = ? AND page_tree IS NOT NULL", courseID, sourceID)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Order("created_at DESC").First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
