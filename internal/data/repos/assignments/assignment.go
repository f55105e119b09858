package assignments

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Assignment, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Assignment, error)
	ListByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Assignment, error)
	FindByCourseAndTitle(dbc dbctx.Context, courseID uuid.UUID, title string) (*types.Assignment, error)
	// AppendSourcePath adds path to source_page_paths iff it is not
	// already present. The guard runs inside the UPDATE so concurrent
	// syncs of the same course cannot produce duplicates.
	AppendSourcePath(dbc dbctx.Context, id uuid.UUID, path string) (bool, error)
	SetChosenDueDate(dbc dbctx.Context, id, dueDateID uuid.UUID) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var a types.Assignment
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Assignment
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Assignment, error) {
	return r.ListByCourses(dbc, []uuid.UUID{courseID})
}

func (r *assignmentRepo) ListByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Assignment
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

func (r *assignmentRepo) FindByCourseAndTitle(dbc dbctx.Context, courseID uuid.UUID, title string) (*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if courseID == uuid.Nil || title == "" {
		return nil, nil
	}
	var a types.Assignment
	err := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND title = ?", courseID, title).
		Order("created_at ASC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) AppendSourcePath(dbc dbctx.Context, id uuid.UUID, path string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || path == "" {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).Exec(`
		UPDATE "assignment"
		SET source_page_paths = COALESCE(source_page_paths, '[]'::jsonb) || to_jsonb(?::text),
		    updated_at = now()
		WHERE id = ?
		  AND NOT COALESCE(source_page_paths, '[]'::jsonb) @> to_jsonb(?::text)
	`, path, id, path)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *assignmentRepo) SetChosenDueDate(dbc dbctx.Context, id, dueDateID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || dueDateID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Assignment{}).
		Where("id = ?", id).
		Update("chosen_due_date_id", dueDateID).Error
}
