package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursesync-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + auth material
		&types.User{},
		&types.AuthBundle{},

		// Courses and their crawlable sources
		&types.Course{},
		&types.Source{},
		&types.Enrollment{},

		// Sync pipeline bookkeeping
		&types.JobSyncGroup{},
		&types.JobSync{},

		// Canonical assignment data
		&types.Assignment{},
		&types.DueDate{},
		&types.UserAssignment{},
	)
}

func EnsureSyncIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	// Previous-tree lookup during the crawl stage.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_sync_course_source_created
		ON job_sync (course_id, source_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_sync_course_source_created: %w", err)
	}
	// Exact-title matching in the extractor.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_assignment_course_title
		ON assignment (course_id, title);
	`).Error; err != nil {
		return fmt.Errorf("create idx_assignment_course_title: %w", err)
	}
	// Open-group lookup for status reads.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_sync_group_user_created
		ON job_sync_group (user_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_sync_group_user_created: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureSyncIndexes(s.db); err != nil {
		s.log.Error("Sync index migration failed", "error", err)
		return err
	}
	return nil
}
