package models

import "github.com/google/uuid"

// RfiReply is immutable once created and owned by its parent RFI.
type RfiReply struct {
	BaseModel
	Message     string    `json:"message" gorm:"type:text;not null"`
	RfiID       uuid.UUID `json:"rfiID" gorm:"type:uuid;not null;index"`
	CreatedByID uuid.UUID `json:"createdByID" gorm:"type:uuid;not null"`
	Rfi         Rfi       `json:"-" gorm:"foreignKey:RfiID"`
	CreatedBy   User      `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
}

func (RfiReply) TableName() string {
	return "rfi_replies"
}
