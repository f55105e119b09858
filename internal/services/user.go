package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/browser"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	// SaveAuthBundle stores a freshly exported browser cookie set. The
	// payload is validated up front so the crawler never sees a bundle it
	// cannot parse.
	SaveAuthBundle(ctx context.Context, rawCookies json.RawMessage) (*types.AuthBundle, error)
}

type userService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	authBundles repos.AuthBundleRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, authBundles repos.AuthBundleRepo) UserService {
	return &userService{
		db:          db,
		log:         log.With("service", "UserService"),
		users:       users,
		authBundles: authBundles,
	}
}

func (s *userService) GetMe(ctx context.Context) (*types.User, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(dbctx.From(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}

func (s *userService) SaveAuthBundle(ctx context.Context, rawCookies json.RawMessage) (*types.AuthBundle, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cookies, err := browser.ParseCookies(rawCookies)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie export: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("cookie export is empty")
	}

	bundle, err := s.authBundles.Create(dbctx.From(ctx), &types.AuthBundle{
		UserID:  userID,
		Cookies: datatypes.JSON(rawCookies),
		InSync:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("save auth bundle: %w", err)
	}
	s.log.Info("auth bundle saved", "user_id", userID, "cookie_count", len(cookies))
	return bundle, nil
}
