package courses

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	Create(dbc dbctx.Context, e *types.Enrollment) (*types.Enrollment, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) Create(dbc dbctx.Context, e *types.Enrollment) (*types.Enrollment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(e).Error
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *enrollmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Enrollment
	if userID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
