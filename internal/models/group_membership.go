package models

import "github.com/google/uuid"

// GroupMembership is a subset of project membership: every member must
// already hold a ProjectMembership row when added.
type GroupMembership struct {
	BaseModel
	GroupID   uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_user"`
	ProjectID uuid.UUID `json:"projectID" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_user"`
	Group     Group     `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Project   Project   `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
