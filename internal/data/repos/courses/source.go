package courses

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type SourceRepo interface {
	Create(dbc dbctx.Context, s *types.Source) (*types.Source, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Source, error)
	ListByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Source, error)
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) Create(dbc dbctx.Context, s *types.Source) (*types.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Source
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sourceRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Source, error) {
	return r.ListByCourses(dbc, []uuid.UUID{courseID})
}

func (r *sourceRepo) ListByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Source, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Source
	if len(courseIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("course_id IN ?", courseIDs).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
