package assignments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type UserAssignmentRepo interface {
	GetOrCreate(dbc dbctx.Context, userID, assignmentID uuid.UUID) (*types.UserAssignment, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAssignment, error)
	SetChosenDueDate(dbc dbctx.Context, userID, assignmentID uuid.UUID, dueDateID *uuid.UUID) error
	// MarkCompleted sets completed_at once; re-marking keeps the
	// original timestamp and syncs never clear it.
	MarkCompleted(dbc dbctx.Context, userID, assignmentID uuid.UUID) error
}

type userAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) UserAssignmentRepo {
	return &userAssignmentRepo{db: db, log: baseLog.With("repo", "UserAssignmentRepo")}
}

func (r *userAssignmentRepo) GetOrCreate(dbc dbctx.Context, userID, assignmentID uuid.UUID) (*types.UserAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || assignmentID == uuid.Nil {
		return nil, nil
	}
	ua := &types.UserAssignment{UserID: userID, AssignmentID: assignmentID}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "assignment_id"}},
			DoNothing: true,
		}).
		Create(ua).Error
	if err != nil {
		return nil, err
	}
	var out types.UserAssignment
	err = transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND assignment_id = ?", userID, assignmentID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userAssignmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserAssignment
	if userID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAssignmentRepo) SetChosenDueDate(dbc dbctx.Context, userID, assignmentID uuid.UUID, dueDateID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || assignmentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UserAssignment{}).
		Where("user_id = ? AND assignment_id = ?", userID, assignmentID).
		Updates(map[string]interface{}{
			"chosen_due_date_id": dueDateID,
			"updated_at":         time.Now(),
		}).Error
}

func (r *userAssignmentRepo) MarkCompleted(dbc dbctx.Context, userID, assignmentID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || assignmentID == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UserAssignment{}).
		Where("user_id = ? AND assignment_id = ? AND completed_at IS NULL", userID, assignmentID).
		Updates(map[string]interface{}{
			"completed_at": now,
			"updated_at":   now,
		}).Error
}
