package models

import (
	"time"

	"github.com/google/uuid"
)

type RfiStatus string

const (
	RfiStatusPending  RfiStatus = "PENDING"
	RfiStatusResolved RfiStatus = "RESOLVED"
)

type RfiPriority string

const (
	RfiPriorityLow    RfiPriority = "LOW"
	RfiPriorityMedium RfiPriority = "MEDIUM"
	RfiPriorityHigh   RfiPriority = "HIGH"
)

type AssignedType string

const (
	AssignedTypeUser  AssignedType = "USER"
	AssignedTypeGroup AssignedType = "GROUP"
)

// Rfi is a tracked request-for-information on a project. AssignedType is
// the discriminant: nil means unassigned, "USER" means AssignedToUserID is
// set, "GROUP" means AssignedGroupID is set. The matching reference and
// only that one is non-null; a CHECK constraint backs this up in postgres.
type Rfi struct {
	BaseModel
	Title            string        `json:"title" gorm:"type:varchar(255);not null"`
	Description      string        `json:"description" gorm:"type:varchar(1000);not null"`
	Status           RfiStatus     `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Priority         RfiPriority   `json:"priority" gorm:"type:varchar(20);not null"`
	DueDate          *time.Time    `json:"dueDate,omitempty" gorm:"index"`
	ProjectID        uuid.UUID     `json:"projectID" gorm:"type:uuid;not null;index"`
	CreatedByID      uuid.UUID     `json:"createdByID" gorm:"type:uuid;not null;index"`
	AssignedType     *AssignedType `json:"assignedType,omitempty" gorm:"type:varchar(10)"`
	AssignedToUserID *uuid.UUID    `json:"assignedToUserID,omitempty" gorm:"type:uuid;index"`
	AssignedGroupID  *uuid.UUID    `json:"assignedGroupID,omitempty" gorm:"type:uuid;index"`
	ResolvedByID     *uuid.UUID    `json:"resolvedByID,omitempty" gorm:"type:uuid"`

	Project        Project    `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedBy      User       `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
	AssignedToUser *User      `json:"assignedToUser,omitempty" gorm:"foreignKey:AssignedToUserID"`
	AssignedGroup  *Group     `json:"assignedGroup,omitempty" gorm:"foreignKey:AssignedGroupID"`
	ResolvedBy     *User      `json:"resolvedBy,omitempty" gorm:"foreignKey:ResolvedByID"`
	Replies        []RfiReply `json:"replies,omitempty" gorm:"foreignKey:RfiID"`
}

func (Rfi) TableName() string {
	return "rfis"
}
