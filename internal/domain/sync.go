package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobSyncGroup is the unit of one user's pipeline invocation. It is marked
// complete after the final stage has returned for every JobSync in the
// group, regardless of per-stage failures.
type JobSyncGroup struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (JobSyncGroup) TableName() string { return "job_sync_group" }

// JobSync is one (course, source) unit within a group. PageTree is the
// crawler's output serialized as JSON; it is written once by the crawl
// stage and never mutated afterward.
type JobSync struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobSyncGroupID uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_sync_group_id"`
	JobSyncGroup   *JobSyncGroup  `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobSyncGroupID;references:ID" json:"job_sync_group,omitempty"`
	CourseID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course         *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	SourceID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"source_id"`
	Source         *Source        `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"source,omitempty"`
	PageTree       datatypes.JSON `gorm:"column:page_tree;type:jsonb" json:"page_tree,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobSync) TableName() string { return "job_sync" }
