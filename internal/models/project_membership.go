package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectRole string

const (
	ProjectRoleAdmin  ProjectRole = "ADMIN"
	ProjectRoleMember ProjectRole = "MEMBER"
)

// ProjectMembership links a user to a project. At most one row per
// (user, project) pair; the project creator has access even without one.
type ProjectMembership struct {
	BaseModel
	UserID    uuid.UUID   `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_project"`
	ProjectID uuid.UUID   `json:"projectID" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_project"`
	Role      ProjectRole `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	JoinedAt  time.Time   `json:"joinedAt" gorm:"not null"`
	User      User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Project   Project     `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (ProjectMembership) TableName() string {
	return "project_memberships"
}
