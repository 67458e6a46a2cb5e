package services

import (
	"context"

	"github.com/contraco/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessService answers the authorization questions every mutating
// operation asks. All checks are pure reads and never return errors:
// an absent project, user or group simply yields false.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// HasProjectAccess is true when the user created the project or holds a
// membership row with role ADMIN or MEMBER.
func (a *AccessService) HasProjectAccess(ctx context.Context, userID, projectID uuid.UUID) bool {
	var project models.Project
	if err := a.DB.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return false
	}

	if project.CreatedByID == userID {
		return true
	}

	var count int64
	a.DB.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Where("user_id = ? AND project_id = ? AND role IN ?", userID, projectID,
			[]models.ProjectRole{models.ProjectRoleAdmin, models.ProjectRoleMember}).
		Count(&count)
	return count > 0
}

// HasProjectAccessByCode resolves the human-facing code first; an unknown
// code yields false.
func (a *AccessService) HasProjectAccessByCode(ctx context.Context, userID uuid.UUID, code string) bool {
	var project models.Project
	if err := a.DB.WithContext(ctx).First(&project, "code = ?", code).Error; err != nil {
		return false
	}
	return a.HasProjectAccess(ctx, userID, project.ID)
}

// IsProjectAdmin is true for the creator and for members holding the
// ADMIN role.
func (a *AccessService) IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) bool {
	var project models.Project
	if err := a.DB.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return false
	}

	if project.CreatedByID == userID {
		return true
	}

	var count int64
	a.DB.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Where("user_id = ? AND project_id = ? AND role = ?", userID, projectID, models.ProjectRoleAdmin).
		Count(&count)
	return count > 0
}

// IsGroupCreator gates group deletion and member addition.
func (a *AccessService) IsGroupCreator(ctx context.Context, groupID, userID uuid.UUID) bool {
	var group models.Group
	if err := a.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		return false
	}
	return group.CreatedByID == userID
}
