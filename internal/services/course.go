package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type CourseView struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Color   string    `json:"color"`
	Sources []string  `json:"sources"`
}

type CourseService interface {
	ListForUser(ctx context.Context) ([]CourseView, error)
}

type courseService struct {
	db      *gorm.DB
	log     *logger.Logger
	courses repos.CourseRepo
	sources repos.SourceRepo
}

func NewCourseService(db *gorm.DB, log *logger.Logger, courses repos.CourseRepo, sources repos.SourceRepo) CourseService {
	return &courseService{
		db:      db,
		log:     log.With("service", "CourseService"),
		courses: courses,
		sources: sources,
	}
}

func (s *courseService) ListForUser(ctx context.Context) ([]CourseView, error) {
	userID, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.From(ctx)

	list, err := s.courses.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if len(list) == 0 {
		return []CourseView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	sources, err := s.sources.ListByCourses(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	urlsByCourse := map[uuid.UUID][]string{}
	for _, src := range sources {
		urlsByCourse[src.CourseID] = append(urlsByCourse[src.CourseID], src.URL)
	}

	out := make([]CourseView, 0, len(list))
	for _, c := range list {
		out = append(out, CourseView{
			ID:      c.ID,
			Title:   c.Title,
			Color:   c.Color,
			Sources: urlsByCourse[c.ID],
		})
	}
	return out, nil
}
