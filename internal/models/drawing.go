package models

import "github.com/google/uuid"

// Drawing is the metadata row for a drawing file stored in object storage.
type Drawing struct {
	BaseModel
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	ContentType  string    `json:"contentType" gorm:"type:varchar(255);not null"`
	Size         int64     `json:"size" gorm:"not null;default:0"`
	StoragePath  string    `json:"storagePath" gorm:"type:text;not null"`
	ProjectID    uuid.UUID `json:"projectID" gorm:"type:uuid;not null;index"`
	UploadedByID uuid.UUID `json:"uploadedByID" gorm:"type:uuid;not null"`
	Project      Project   `json:"-" gorm:"foreignKey:ProjectID"`
	UploadedBy   User      `json:"uploadedBy,omitempty" gorm:"foreignKey:UploadedByID"`
}

func (Drawing) TableName() string {
	return "drawings"
}
