package models

import "github.com/google/uuid"

// RfiGroupAssignment is the fan-out of a group-assigned RFI: one row per
// group member. Rows exist if and only if the parent RFI's assignedType is
// GROUP; they are re-derived on reassignment and extended when members are
// added to the group.
type RfiGroupAssignment struct {
	BaseModel
	RfiID   uuid.UUID `json:"rfiID" gorm:"type:uuid;not null;index;uniqueIndex:idx_rfi_member"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_rfi_member"`
	GroupID uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index"`
	Rfi     Rfi       `json:"-" gorm:"foreignKey:RfiID"`
	User    User      `json:"-" gorm:"foreignKey:UserID"`
	Group   Group     `json:"-" gorm:"foreignKey:GroupID"`
}

func (RfiGroupAssignment) TableName() string {
	return "rfi_group_assignments"
}
