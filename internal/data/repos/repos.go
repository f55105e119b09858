package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos/assignments"
	"github.com/yungbote/coursesync-backend/internal/data/repos/courses"
	"github.com/yungbote/coursesync-backend/internal/data/repos/syncjobs"
	"github.com/yungbote/coursesync-backend/internal/data/repos/user"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type AuthBundleRepo = user.AuthBundleRepo

type CourseRepo = courses.CourseRepo
type SourceRepo = courses.SourceRepo
type EnrollmentRepo = courses.EnrollmentRepo

type JobSyncGroupRepo = syncjobs.JobSyncGroupRepo
type JobSyncRepo = syncjobs.JobSyncRepo

type AssignmentRepo = assignments.AssignmentRepo
type DueDateRepo = assignments.DueDateRepo
type UserAssignmentRepo = assignments.UserAssignmentRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewAuthBundleRepo(db *gorm.DB, baseLog *logger.Logger) AuthBundleRepo {
	return user.NewAuthBundleRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return courses.NewCourseRepo(db, baseLog)
}
func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return courses.NewSourceRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return courses.NewEnrollmentRepo(db, baseLog)
}

func NewJobSyncGroupRepo(db *gorm.DB, baseLog *logger.Logger) JobSyncGroupRepo {
	return syncjobs.NewJobSyncGroupRepo(db, baseLog)
}
func NewJobSyncRepo(db *gorm.DB, baseLog *logger.Logger) JobSyncRepo {
	return syncjobs.NewJobSyncRepo(db, baseLog)
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return assignments.NewAssignmentRepo(db, baseLog)
}
func NewDueDateRepo(db *gorm.DB, baseLog *logger.Logger) DueDateRepo {
	return assignments.NewDueDateRepo(db, baseLog)
}
func NewUserAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) UserAssignmentRepo {
	return assignments.NewUserAssignmentRepo(db, baseLog)
}

// All bundles every repo for constructor wiring.
type All struct {
	Users           UserRepo
	AuthBundles     AuthBundleRepo
	Courses         CourseRepo
	Sources         SourceRepo
	Enrollments     EnrollmentRepo
	JobSyncGroups   JobSyncGroupRepo
	JobSyncs        JobSyncRepo
	Assignments     AssignmentRepo
	DueDates        DueDateRepo
	UserAssignments UserAssignmentRepo
}

func NewAll(db *gorm.DB, baseLog *logger.Logger) All {
	return All{
		Users:           NewUserRepo(db, baseLog),
		AuthBundles:     NewAuthBundleRepo(db, baseLog),
		Courses:         NewCourseRepo(db, baseLog),
		Sources:         NewSourceRepo(db, baseLog),
		Enrollments:     NewEnrollmentRepo(db, baseLog),
		JobSyncGroups:   NewJobSyncGroupRepo(db, baseLog),
		JobSyncs:        NewJobSyncRepo(db, baseLog),
		Assignments:     NewAssignmentRepo(db, baseLog),
		DueDates:        NewDueDateRepo(db, baseLog),
		UserAssignments: NewUserAssignmentRepo(db, baseLog),
	}
}
