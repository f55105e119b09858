package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AuthID    string    `gorm:"column:auth_id;uniqueIndex;not null" json:"auth_id"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// AuthBundle holds a user's browser-exported cookie set for authenticated
// crawling. Cookies is a JSON array of cookie records in the browser export
// shape; it is normalised before being handed to the fetcher.
type AuthBundle struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Cookies   datatypes.JSON `gorm:"column:cookies;type:jsonb" json:"cookies"`
	InSync    bool           `gorm:"column:in_sync;not null;default:true" json:"in_sync"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (AuthBundle) TableName() string { return "auth_bundle" }
