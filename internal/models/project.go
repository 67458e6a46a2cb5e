package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is identified externally by its short human-facing code
// (PROJ-NNN), never by its internal id.
type Project struct {
	BaseModel
	Code         string              `json:"code" gorm:"type:varchar(20);uniqueIndex;not null"`
	Name         string              `json:"name" gorm:"type:varchar(255);not null"`
	CreatedByID  uuid.UUID           `json:"createdByID" gorm:"type:uuid;not null;index"`
	DueDate      *time.Time          `json:"dueDate,omitempty"`
	ProjectOwner *string             `json:"projectOwner,omitempty" gorm:"type:varchar(255)"`
	Address      *string             `json:"address,omitempty" gorm:"type:text"`
	CreatedBy    User                `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	Memberships  []ProjectMembership `json:"-" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}
