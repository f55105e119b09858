package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type AuthBundleRepo interface {
	Create(dbc dbctx.Context, b *types.AuthBundle) (*types.AuthBundle, error)
	GetLatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.AuthBundle, error)
	SetInSync(dbc dbctx.Context, id uuid.UUID, inSync bool) error
}

type authBundleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuthBundleRepo(db *gorm.DB, baseLog *logger.Logger) AuthBundleRepo {
	return &authBundleRepo{db: db, log: baseLog.With("repo", "AuthBundleRepo")}
}

func (r *authBundleRepo) Create(dbc dbctx.Context, b *types.AuthBundle) (*types.AuthBundle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (r *authBundleRepo) GetLatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.AuthBundle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var b types.AuthBundle
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *authBundleRepo) SetInSync(dbc dbctx.Context, id uuid.UUID, inSync bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AuthBundle{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"in_sync":    inSync,
			"updated_at": time.Now(),
		}).Error
}
