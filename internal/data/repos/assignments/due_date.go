package assignments

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type DueDateRepo interface {
	Create(dbc dbctx.Context, d *types.DueDate) (*types.DueDate, error)
	ListByAssignments(dbc dbctx.Context, assignmentIDs []uuid.UUID) ([]*types.DueDate, error)
}

type dueDateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDueDateRepo(db *gorm.DB, baseLog *logger.Logger) DueDateRepo {
	return &dueDateRepo{db: db, log: baseLog.With("repo", "DueDateRepo")}
}

func (r *dueDateRepo) Create(dbc dbctx.Context, d *types.DueDate) (*types.DueDate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dueDateRepo) ListByAssignments(dbc dbctx.Context, assignmentIDs []uuid.UUID) ([]*types.DueDate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DueDate
	if len(assignmentIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("assignment_id IN ?", assignmentIDs).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
