// Package services holds the request-facing application logic between the
// gin handlers and the repo layer.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/platform/requestdata"
)

// AuthService verifies bearer tokens issued by the external identity
// provider and attaches the local user to the request context. Users are
// created lazily on first sight of a valid token.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string) AuthService {
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid token")
	}

	authID, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(authID) == "" {
		return ctx, fmt.Errorf("token missing subject")
	}
	email, _ := claims["email"].(string)

	u, err := as.userRepo.UpsertByAuthID(dbctx.From(ctx), authID, email)
	if err != nil {
		as.log.Error("user upsert failed", "auth_id", authID, "error", err)
		return ctx, fmt.Errorf("user lookup failed")
	}
	if u == nil || u.ID == uuid.Nil {
		return ctx, fmt.Errorf("user lookup failed")
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		AuthID:      authID,
		UserID:      u.ID,
	}), nil
}

// userFromContext is the shared guard every protected service call runs
// first.
func userFromContext(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no authenticated user in context")
	}
	return rd.UserID, nil
}
