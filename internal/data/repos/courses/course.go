package courses

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, c *types.Course) (*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, c *types.Course) (*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Course
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Course
	if userID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Joins(`JOIN "enrollment" ON "enrollment".course_id = "course".id`).
		Where(`"enrollment".user_id = ?`, userID).
		Order(`"course".created_at ASC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
