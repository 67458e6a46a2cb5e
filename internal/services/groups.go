package services

import (
	"context"
	"errors"
	"strings"

	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupService owns group creation, membership changes and deletion,
// including keeping RFI group fan-out rows consistent with membership.
type GroupService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewGroupService(db *gorm.DB, access *AccessService) *GroupService {
	return &GroupService{DB: db, Access: access}
}

// resolveIdentifier treats anything containing "@" as an email, everything
// else as a username.
func (s *GroupService) resolveIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	if strings.Contains(identifier, "@") {
		if err := s.DB.WithContext(ctx).First(&user, "email = ?", identifier).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("user not found with email: %s", identifier)
			}
			return nil, Internal(err, "failed resolving member")
		}
		return &user, nil
	}
	if err := s.DB.WithContext(ctx).First(&user, "username = ?", identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found with username: %s", identifier)
		}
		return nil, Internal(err, "failed resolving member")
	}
	return &user, nil
}

// CreateGroup resolves every member identifier, requires each of them to
// already hold access to the project, and persists the group together with
// all membership rows in one transaction. The creator is always a member.
func (s *GroupService) CreateGroup(ctx context.Context, creator *models.User, projectCode, name string, memberIdentifiers []string) (*models.Group, error) {
	if !s.Access.HasProjectAccessByCode(ctx, creator.ID, projectCode) {
		return nil, Forbidden("you don't have access to project: %s", projectCode)
	}

	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "code = ?", projectCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found with code: %s", projectCode)
		}
		return nil, Internal(err, "failed loading project")
	}

	// The same user may be named more than once (or via email and username);
	// a duplicate must not become a second membership row.
	members := make([]*models.User, 0, len(memberIdentifiers))
	seen := make(map[uuid.UUID]bool, len(memberIdentifiers))
	for _, identifier := range memberIdentifiers {
		user, err := s.resolveIdentifier(ctx, identifier)
		if err != nil {
			return nil, err
		}
		if seen[user.ID] {
			continue
		}
		seen[user.ID] = true
		members = append(members, user)
	}

	// Every offending identifier is reported, not just the first.
	var nonMembers []string
	for _, member := range members {
		if !s.Access.HasProjectAccess(ctx, member.ID, project.ID) {
			nonMembers = append(nonMembers, member.Username)
		}
	}
	if len(nonMembers) > 0 {
		return nil, BadRequest("the following users are not members of the project: %s", strings.Join(nonMembers, ", "))
	}

	var existing models.Group
	err := s.DB.WithContext(ctx).First(&existing, "name = ? AND project_id = ?", name, project.ID).Error
	if err == nil {
		return nil, Conflict("group %q already exists in project %s", name, projectCode)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Internal(err, "failed checking existing group")
	}

	group := models.Group{
		Name:        name,
		ProjectID:   project.ID,
		CreatedByID: creator.ID,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		creatorIncluded := false
		for _, member := range members {
			if member.ID == creator.ID {
				creatorIncluded = true
			}
			membership := models.GroupMembership{
				GroupID:   group.ID,
				ProjectID: project.ID,
				UserID:    member.ID,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}

		if !creatorIncluded {
			membership := models.GroupMembership{
				GroupID:   group.ID,
				ProjectID: project.ID,
				UserID:    creator.ID,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, Internal(err, "failed creating group")
	}

	logger.InfoWithUser(creator.ID.String(), "group_created", map[string]interface{}{
		"group_id":     group.ID.String(),
		"group_name":   group.Name,
		"project_code": projectCode,
		"member_count": len(members),
	})

	return &group, nil
}

// AddGroupMembers adds the named users to the group. Only the group
// creator may call it. Users already in the group are silently skipped;
// an all-duplicates request is rejected. New members are also fanned into
// the group's currently assigned RFIs so assignment rows stay consistent.
func (s *GroupService) AddGroupMembers(ctx context.Context, requester *models.User, groupID uuid.UUID, usernames []string) (int, error) {
	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NotFound("group not found with id: %s", groupID)
		}
		return 0, Internal(err, "failed loading group")
	}

	if group.CreatedByID != requester.ID {
		return 0, Forbidden("only the group creator can add members")
	}

	// Repeated usernames collapse to one lookup; IN returns each user once,
	// so the miss check has to compare against the distinct set.
	distinct := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		if seen[username] {
			continue
		}
		seen[username] = true
		distinct = append(distinct, username)
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("username IN ?", distinct).Find(&users).Error; err != nil {
		return 0, Internal(err, "failed resolving members")
	}
	if len(users) != len(distinct) {
		found := make(map[string]bool, len(users))
		for _, user := range users {
			found[user.Username] = true
		}
		var missing []string
		for _, username := range distinct {
			if !found[username] {
				missing = append(missing, username)
			}
		}
		return 0, NotFound("users not found: %s", strings.Join(missing, ", "))
	}

	var nonMembers []string
	for _, user := range users {
		if !s.Access.HasProjectAccess(ctx, user.ID, group.ProjectID) {
			nonMembers = append(nonMembers, user.Username)
		}
	}
	if len(nonMembers) > 0 {
		return 0, BadRequest("the following users are not members of the project: %s", strings.Join(nonMembers, ", "))
	}

	var existingRows []models.GroupMembership
	if err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).Find(&existingRows).Error; err != nil {
		return 0, Internal(err, "failed loading group members")
	}
	existing := make(map[uuid.UUID]bool, len(existingRows))
	for _, row := range existingRows {
		existing[row.UserID] = true
	}

	var toAdd []models.User
	for _, user := range users {
		if !existing[user.ID] {
			toAdd = append(toAdd, user)
		}
	}
	if len(toAdd) == 0 {
		return 0, BadRequest("all specified users are already members of the group")
	}

	var assignedRfis []models.Rfi
	if err := s.DB.WithContext(ctx).
		Where("assigned_type = ? AND assigned_group_id = ?", models.AssignedTypeGroup, groupID).
		Find(&assignedRfis).Error; err != nil {
		return 0, Internal(err, "failed loading group assignments")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, user := range toAdd {
			membership := models.GroupMembership{
				GroupID:   group.ID,
				ProjectID: group.ProjectID,
				UserID:    user.ID,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
			for _, rfi := range assignedRfis {
				assignment := models.RfiGroupAssignment{
					RfiID:   rfi.ID,
					UserID:  user.ID,
					GroupID: group.ID,
				}
				if err := tx.Create(&assignment).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, Internal(err, "failed adding group members")
	}

	logger.InfoWithUser(requester.ID.String(), "group_members_added", map[string]interface{}{
		"group_id": group.ID.String(),
		"added":    len(toAdd),
	})

	return len(toAdd), nil
}

// DeleteGroup removes the group, its membership rows, its RFI fan-out
// rows, and unassigns every RFI still pointing at it, all in one
// transaction. Creator only.
func (s *GroupService) DeleteGroup(ctx context.Context, requester *models.User, groupID uuid.UUID) error {
	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("group not found with id: %s", groupID)
		}
		return Internal(err, "failed loading group")
	}

	if group.CreatedByID != requester.ID {
		return Forbidden("only the group creator can delete the group")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.RfiGroupAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Rfi{}).
			Where("assigned_type = ? AND assigned_group_id = ?", models.AssignedTypeGroup, groupID).
			Updates(map[string]interface{}{"assigned_type": nil, "assigned_group_id": nil}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
	if err != nil {
		return Internal(err, "failed deleting group")
	}

	logger.InfoWithUser(requester.ID.String(), "group_deleted", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})

	return nil
}

// UserGroups lists every group the user belongs to, members included.
func (s *GroupService) UserGroups(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Preload("Memberships.User").
		Preload("Project").
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, Internal(err, "failed listing groups")
	}
	return groups, nil
}

// ProjectGroups lists all groups of a project, access-gated.
func (s *GroupService) ProjectGroups(ctx context.Context, requester *models.User, projectCode string) ([]models.Group, error) {
	if !s.Access.HasProjectAccessByCode(ctx, requester.ID, projectCode) {
		return nil, Forbidden("you don't have access to project: %s", projectCode)
	}

	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "code = ?", projectCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found with code: %s", projectCode)
		}
		return nil, Internal(err, "failed loading project")
	}

	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Preload("Memberships.User").
		Preload("CreatedBy").
		Where("project_id = ?", project.ID).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, Internal(err, "failed listing project groups")
	}
	return groups, nil
}
