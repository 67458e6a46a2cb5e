package models

import "github.com/google/uuid"

// Group names are unique within a project, not globally.
type Group struct {
	BaseModel
	Name        string            `json:"name" gorm:"type:varchar(150);not null;uniqueIndex:idx_group_name_project"`
	ProjectID   uuid.UUID         `json:"projectID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_name_project"`
	CreatedByID uuid.UUID         `json:"createdByID" gorm:"type:uuid;not null;index"`
	Project     Project           `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedBy   User              `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
	Memberships []GroupMembership `json:"memberships,omitempty" gorm:"foreignKey:GroupID"`
}
