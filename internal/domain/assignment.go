package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Assignment is the course-scoped canonical record of one homework
// assignment. SourcePagePaths is the append-only JSON array of blob paths
// of every page that has ever evidenced it. ChosenDueDateID is an id-only
// back-reference; it is set only after the DueDate row exists.
type Assignment struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course          *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title           string         `gorm:"column:title;not null;index" json:"title"`
	Description     string         `gorm:"column:description" json:"description"`
	ContentHash     string         `gorm:"column:content_hash" json:"content_hash"`
	SourceURL       string         `gorm:"column:source_url" json:"source_url"`
	SourcePagePaths datatypes.JSON `gorm:"column:source_page_paths;type:jsonb" json:"source_page_paths"`
	JobSyncID       *uuid.UUID     `gorm:"type:uuid;column:job_sync_id;index" json:"job_sync_id,omitempty"`
	ChosenDueDateID *uuid.UUID     `gorm:"type:uuid;column:chosen_due_date_id" json:"chosen_due_date_id,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Assignment) TableName() string { return "assignment" }

type DueDate struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssignmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"assignment_id"`
	Assignment   *Assignment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	Date         *time.Time  `gorm:"column:date" json:"date,omitempty"`
	DateCertain  bool        `gorm:"column:date_certain;not null;default:false" json:"date_certain"`
	TimeCertain  bool        `gorm:"column:time_certain;not null;default:false" json:"time_certain"`
	Confidence   float64     `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Title        string      `gorm:"column:title" json:"title"`
	Description  string      `gorm:"column:description" json:"description"`
	URL          string      `gorm:"column:url" json:"url"`
	CreatedAt    time.Time   `gorm:"not null;default:now()" json:"created_at"`
}

func (DueDate) TableName() string { return "due_date" }

// UserAssignment is the per-user overlay on a shared Assignment: a
// completed flag and an optional due-date override. CompletedAt is
// monotonic; once set the sync pipeline never clears it.
type UserAssignment struct {
	ID              uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_assignment" json:"user_id"`
	User            *User       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	AssignmentID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_assignment" json:"assignment_id"`
	Assignment      *Assignment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	ChosenDueDateID *uuid.UUID  `gorm:"type:uuid;column:chosen_due_date_id" json:"chosen_due_date_id,omitempty"`
	CompletedAt     *time.Time  `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserAssignment) TableName() string { return "user_assignment" }
