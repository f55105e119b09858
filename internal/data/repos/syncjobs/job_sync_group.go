package syncjobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type JobSyncGroupRepo interface {
	Create(dbc dbctx.Context, g *types.JobSyncGroup) (*types.JobSyncGroup, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobSyncGroup, error)
	MarkComplete(dbc dbctx.Context, id uuid.UUID) error
}

type jobSyncGroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobSyncGroupRepo(db *gorm.DB, baseLog *logger.Logger) JobSyncGroupRepo {
	return &jobSyncGroupRepo{db: db, log: baseLog.With("repo", "JobSyncGroupRepo")}
}

func (r *jobSyncGroupRepo) Create(dbc dbctx.Context, g *types.JobSyncGroup) (*types.JobSyncGroup, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

func (r *jobSyncGroupRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobSyncGroup, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var g types.JobSyncGroup
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// MarkComplete stamps completed_at once; a group already marked keeps its
// original timestamp.
func (r *jobSyncGroupRepo) MarkComplete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.JobSyncGroup{}).
		Where("id = ? AND completed_at IS NULL", id).
		Update("completed_at", time.Now()).Error
}
