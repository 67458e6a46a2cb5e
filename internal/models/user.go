package models

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

type User struct {
	BaseModel
	Email            string              `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username         string              `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash     string              `json:"-" gorm:"type:text;not null"`
	Role             UserRole            `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	Job              *string             `json:"job,omitempty" gorm:"type:varchar(100)"`
	CurrentProjectID *uuid.UUID          `json:"currentProjectID,omitempty" gorm:"type:uuid"`
	Memberships      []ProjectMembership `json:"-" gorm:"foreignKey:UserID"`
	CreatedProjects  []Project           `json:"-" gorm:"foreignKey:CreatedByID"`
	CreatedRfis      []Rfi               `json:"-" gorm:"foreignKey:CreatedByID"`
}
