package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RfiService is the RFI lifecycle engine: creation with user/group
// assignment, patch updates, resolution, deletion, and the query surface.
// Assignment to a group snapshots the group's current membership into
// rfi_group_assignments rows inside the same transaction.
type RfiService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewRfiService(db *gorm.DB, access *AccessService) *RfiService {
	return &RfiService{DB: db, Access: access}
}

type CreateRfiInput struct {
	ProjectCode       string
	Title             string
	Description       string
	Priority          models.RfiPriority
	DueDate           *time.Time
	AssignedToEmail   *string
	AssignedGroupName *string
}

type UpdateRfiInput struct {
	Title             *string
	Description       *string
	Priority          *models.RfiPriority
	Status            *models.RfiStatus
	DueDate           *time.Time
	AssignedToEmail   *string
	AssignedGroupName *string
}

// UserRef is the compact identity shape embedded in projections.
type UserRef struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Job   *string `json:"job,omitempty"`
}

type RfiReplyResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy UserRef   `json:"createdBy"`
}

// RfiResponse is the stable external representation of an RFI.
// AssignedTo is a single display string: the assignee's email for USER
// assignments, the group's name for GROUP assignments, absent otherwise.
type RfiResponse struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Status       models.RfiStatus     `json:"status"`
	Priority     models.RfiPriority   `json:"priority"`
	ProjectCode  string               `json:"projectCode"`
	DueDate      *time.Time           `json:"dueDate,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	CreatedBy    UserRef              `json:"createdBy"`
	ResolvedBy   *UserRef             `json:"resolvedBy,omitempty"`
	AssignedType *models.AssignedType `json:"assignedType,omitempty"`
	AssignedTo   *string              `json:"assignedTo,omitempty"`
	Replies      []RfiReplyResponse   `json:"replies,omitempty"`
}

// Find loads an RFI by id without projecting it. Callers use it to run
// their own access check before mutating.
func (s *RfiService) Find(ctx context.Context, rfiID uuid.UUID) (*models.Rfi, error) {
	var rfi models.Rfi
	err := s.DB.WithContext(ctx).
		Preload("Project").
		Preload("CreatedBy").
		Preload("ResolvedBy").
		Preload("AssignedToUser").
		Preload("AssignedGroup").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("rfi_replies.created_at ASC")
		}).
		Preload("Replies.CreatedBy").
		First(&rfi, "id = ?", rfiID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("RFI not found")
		}
		return nil, Internal(err, "failed loading RFI")
	}
	return &rfi, nil
}

// Create persists a new PENDING RFI. At most one of AssignedToEmail /
// AssignedGroupName may be set; with neither the RFI is created
// unassigned (the HTTP layer is stricter). Timestamps are server-side.
func (s *RfiService) Create(ctx context.Context, creator *models.User, in CreateRfiInput) (*RfiResponse, error) {
	if in.AssignedToEmail != nil && in.AssignedGroupName != nil {
		return nil, BadRequest("cannot assign to both user and group")
	}

	if !s.Access.HasProjectAccessByCode(ctx, creator.ID, in.ProjectCode) {
		return nil, Forbidden("you don't have access to project: %s", in.ProjectCode)
	}

	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "code = ?", in.ProjectCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found with code: %s", in.ProjectCode)
		}
		return nil, Internal(err, "failed loading project")
	}

	rfi := models.Rfi{
		Title:       in.Title,
		Description: in.Description,
		Status:      models.RfiStatusPending,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ProjectID:   project.ID,
		CreatedByID: creator.ID,
	}

	if in.AssignedToEmail != nil {
		var assignee models.User
		if err := s.DB.WithContext(ctx).First(&assignee, "email = ?", *in.AssignedToEmail).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("user not found with email: %s", *in.AssignedToEmail)
			}
			return nil, Internal(err, "failed resolving assignee")
		}
		if !s.Access.HasProjectAccess(ctx, assignee.ID, project.ID) {
			return nil, BadRequest("assigned user is not a member of the project")
		}
		assignedType := models.AssignedTypeUser
		rfi.AssignedType = &assignedType
		rfi.AssignedToUserID = &assignee.ID
	}

	var groupMemberIDs []uuid.UUID
	if in.AssignedGroupName != nil {
		var group models.Group
		err := s.DB.WithContext(ctx).
			First(&group, "name = ? AND project_id = ?", *in.AssignedGroupName, project.ID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("group not found with name: %s", *in.AssignedGroupName)
			}
			return nil, Internal(err, "failed resolving group")
		}
		assignedType := models.AssignedTypeGroup
		rfi.AssignedType = &assignedType
		rfi.AssignedGroupID = &group.ID

		var memberships []models.GroupMembership
		if err := s.DB.WithContext(ctx).Where("group_id = ?", group.ID).Find(&memberships).Error; err != nil {
			return nil, Internal(err, "failed loading group members")
		}
		for _, membership := range memberships {
			groupMemberIDs = append(groupMemberIDs, membership.UserID)
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rfi).Error; err != nil {
			return err
		}
		// Fan-out snapshot: one assignment row per member at creation time.
		for _, memberID := range groupMemberIDs {
			assignment := models.RfiGroupAssignment{
				RfiID:   rfi.ID,
				UserID:  memberID,
				GroupID: *rfi.AssignedGroupID,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, Internal(err, "failed creating RFI")
	}

	logger.InfoWithUser(creator.ID.String(), "rfi_created", map[string]interface{}{
		"rfi_id":       rfi.ID.String(),
		"project_code": project.Code,
		"fan_out":      len(groupMemberIDs),
	})

	return s.Project(ctx, rfi.ID)
}

// Update applies a partial patch: every non-nil field overwrites the
// stored value, everything else is retained. Reassignment clears the
// previous target and keeps fan-out rows consistent with the new one.
// The caller must have verified project access beforehand.
func (s *RfiService) Update(ctx context.Context, rfiID uuid.UUID, in UpdateRfiInput) (*RfiResponse, error) {
	if in.AssignedToEmail != nil && in.AssignedGroupName != nil {
		return nil, BadRequest("cannot assign to both user and group")
	}

	var rfi models.Rfi
	if err := s.DB.WithContext(ctx).First(&rfi, "id = ?", rfiID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("RFI not found")
		}
		return nil, Internal(err, "failed loading RFI")
	}

	if in.Title != nil {
		rfi.Title = *in.Title
	}
	if in.Description != nil {
		rfi.Description = *in.Description
	}
	if in.Priority != nil {
		rfi.Priority = *in.Priority
	}
	if in.Status != nil {
		switch *in.Status {
		case models.RfiStatusPending, models.RfiStatusResolved:
		default:
			return nil, BadRequest("invalid status: %s", *in.Status)
		}
		if rfi.Status == models.RfiStatusResolved && *in.Status == models.RfiStatusPending {
			return nil, BadRequest("a resolved RFI cannot be reopened")
		}
		rfi.Status = *in.Status
	}
	if in.DueDate != nil {
		rfi.DueDate = in.DueDate
	}

	var groupMemberIDs []uuid.UUID
	refreshAssignments := false

	if in.AssignedToEmail != nil {
		var assignee models.User
		if err := s.DB.WithContext(ctx).First(&assignee, "email = ?", *in.AssignedToEmail).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("user not found with email: %s", *in.AssignedToEmail)
			}
			return nil, Internal(err, "failed resolving assignee")
		}
		if !s.Access.HasProjectAccess(ctx, assignee.ID, rfi.ProjectID) {
			return nil, BadRequest("assigned user is not a member of the project")
		}
		assignedType := models.AssignedTypeUser
		rfi.AssignedType = &assignedType
		rfi.AssignedToUserID = &assignee.ID
		rfi.AssignedGroupID = nil
		refreshAssignments = true
	}

	if in.AssignedGroupName != nil {
		var group models.Group
		err := s.DB.WithContext(ctx).
			First(&group, "name = ? AND project_id = ?", *in.AssignedGroupName, rfi.ProjectID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("group not found with name: %s", *in.AssignedGroupName)
			}
			return nil, Internal(err, "failed resolving group")
		}
		assignedType := models.AssignedTypeGroup
		rfi.AssignedType = &assignedType
		rfi.AssignedGroupID = &group.ID
		rfi.AssignedToUserID = nil
		refreshAssignments = true

		var memberships []models.GroupMembership
		if err := s.DB.WithContext(ctx).Where("group_id = ?", group.ID).Find(&memberships).Error; err != nil {
			return nil, Internal(err, "failed loading group members")
		}
		for _, membership := range memberships {
			groupMemberIDs = append(groupMemberIDs, membership.UserID)
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if refreshAssignments {
			if err := tx.Where("rfi_id = ?", rfi.ID).Delete(&models.RfiGroupAssignment{}).Error; err != nil {
				return err
			}
			for _, memberID := range groupMemberIDs {
				assignment := models.RfiGroupAssignment{
					RfiID:   rfi.ID,
					UserID:  memberID,
					GroupID: *rfi.AssignedGroupID,
				}
				if err := tx.Create(&assignment).Error; err != nil {
					return err
				}
			}
		}
		// Save with Select so cleared assignment references are written.
		return tx.Model(&models.Rfi{}).Where("id = ?", rfi.ID).
			Select("title", "description", "priority", "status", "due_date",
				"assigned_type", "assigned_to_user_id", "assigned_group_id", "updated_at").
			Updates(map[string]interface{}{
				"title":               rfi.Title,
				"description":         rfi.Description,
				"priority":            rfi.Priority,
				"status":              rfi.Status,
				"due_date":            rfi.DueDate,
				"assigned_type":       rfi.AssignedType,
				"assigned_to_user_id": rfi.AssignedToUserID,
				"assigned_group_id":   rfi.AssignedGroupID,
				"updated_at":          time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, Internal(err, "failed updating RFI")
	}

	return s.Project(ctx, rfi.ID)
}

// Resolve transitions the RFI to RESOLVED, stamps the resolver and
// appends the resolution reply. Resolution is terminal: resolving an
// already resolved RFI fails with Conflict.
func (s *RfiService) Resolve(ctx context.Context, resolver *models.User, rfiID uuid.UUID, message string) (*RfiResponse, error) {
	var rfi models.Rfi
	if err := s.DB.WithContext(ctx).First(&rfi, "id = ?", rfiID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("RFI not found")
		}
		return nil, Internal(err, "failed loading RFI")
	}

	if rfi.Status == models.RfiStatusResolved {
		return nil, Conflict("RFI is already resolved")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Rfi{}).Where("id = ?", rfi.ID).
			Updates(map[string]interface{}{
				"status":         models.RfiStatusResolved,
				"resolved_by_id": resolver.ID,
			}).Error; err != nil {
			return err
		}
		reply := models.RfiReply{
			Message:     message,
			RfiID:       rfi.ID,
			CreatedByID: resolver.ID,
		}
		return tx.Create(&reply).Error
	})
	if err != nil {
		return nil, Internal(err, "failed resolving RFI")
	}

	logger.InfoWithUser(resolver.ID.String(), "rfi_resolved", map[string]interface{}{
		"rfi_id": rfi.ID.String(),
	})

	return s.Project(ctx, rfi.ID)
}

// Reply appends a discussion reply without changing status.
func (s *RfiService) Reply(ctx context.Context, author *models.User, rfiID uuid.UUID, message string) (*RfiResponse, error) {
	var rfi models.Rfi
	if err := s.DB.WithContext(ctx).First(&rfi, "id = ?", rfiID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("RFI not found")
		}
		return nil, Internal(err, "failed loading RFI")
	}

	reply := models.RfiReply{
		Message:     message,
		RfiID:       rfi.ID,
		CreatedByID: author.ID,
	}
	if err := s.DB.WithContext(ctx).Create(&reply).Error; err != nil {
		return nil, Internal(err, "failed creating reply")
	}

	return s.Project(ctx, rfi.ID)
}

// Delete removes the RFI together with its replies and fan-out rows in
// one transaction. Only the creator may delete.
func (s *RfiService) Delete(ctx context.Context, requester *models.User, rfiID uuid.UUID) error {
	var rfi models.Rfi
	if err := s.DB.WithContext(ctx).First(&rfi, "id = ?", rfiID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("RFI not found")
		}
		return Internal(err, "failed loading RFI")
	}

	if rfi.CreatedByID != requester.ID {
		return Forbidden("only the creator can delete this RFI")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rfi_id = ?", rfi.ID).Delete(&models.RfiReply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rfi_id = ?", rfi.ID).Delete(&models.RfiGroupAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Rfi{}, "id = ?", rfi.ID).Error
	})
	if err != nil {
		return Internal(err, "failed deleting RFI")
	}

	logger.InfoWithUser(requester.ID.String(), "rfi_deleted", map[string]interface{}{
		"rfi_id": rfi.ID.String(),
	})

	return nil
}

// ProjectRfis lists a project's RFIs, optionally filtered by exact
// status, newest first, paginated at the store.
func (s *RfiService) ProjectRfis(ctx context.Context, requester *models.User, projectCode, status string, offset, limit int) ([]RfiResponse, int64, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "code = ?", projectCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, NotFound("project not found with code: %s", projectCode)
		}
		return nil, 0, Internal(err, "failed loading project")
	}

	if !s.Access.HasProjectAccess(ctx, requester.ID, project.ID) {
		return nil, 0, Forbidden("you don't have access to project: %s", projectCode)
	}

	query := s.DB.WithContext(ctx).Model(&models.Rfi{}).Where("project_id = ?", project.ID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, Internal(err, "failed counting RFIs")
	}

	var rfis []models.Rfi
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rfis).Error; err != nil {
		return nil, 0, Internal(err, "failed listing RFIs")
	}

	responses, err := s.projectAll(ctx, rfis)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// AssignedRfis returns the RFIs assigned to the user: direct USER
// assignments followed by group fan-out assignments, concatenated without
// deduplication, then sliced by offset/limit.
func (s *RfiService) AssignedRfis(ctx context.Context, user *models.User, offset, limit int) ([]RfiResponse, int64, error) {
	var direct []models.Rfi
	err := s.DB.WithContext(ctx).
		Where("assigned_type = ? AND assigned_to_user_id = ?", models.AssignedTypeUser, user.ID).
		Order("created_at DESC").
		Find(&direct).Error
	if err != nil {
		return nil, 0, Internal(err, "failed listing assigned RFIs")
	}

	var viaGroups []models.Rfi
	err = s.DB.WithContext(ctx).
		Joins("JOIN rfi_group_assignments ON rfi_group_assignments.rfi_id = rfis.id").
		Where("rfi_group_assignments.user_id = ?", user.ID).
		Order("rfis.created_at DESC").
		Find(&viaGroups).Error
	if err != nil {
		return nil, 0, Internal(err, "failed listing group-assigned RFIs")
	}

	combined := append(direct, viaGroups...)
	total := int64(len(combined))
	page := paginateSlice(combined, offset, limit)

	responses, err := s.projectAll(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// CreatedRfis returns the RFIs the user created, newest first.
func (s *RfiService) CreatedRfis(ctx context.Context, user *models.User, offset, limit int) ([]RfiResponse, int64, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Rfi{}).
		Where("created_by_id = ?", user.ID).Count(&total).Error; err != nil {
		return nil, 0, Internal(err, "failed counting created RFIs")
	}

	var rfis []models.Rfi
	err := s.DB.WithContext(ctx).
		Where("created_by_id = ?", user.ID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rfis).Error
	if err != nil {
		return nil, 0, Internal(err, "failed listing created RFIs")
	}

	responses, err := s.projectAll(ctx, rfis)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// AllRelatedRfis unions created, directly assigned, group-assigned, and
// every RFI of every project the user belongs to; deduplicated by id,
// sorted by creation time descending, then sliced by offset/limit.
func (s *RfiService) AllRelatedRfis(ctx context.Context, user *models.User, offset, limit int) ([]RfiResponse, int64, error) {
	var created []models.Rfi
	if err := s.DB.WithContext(ctx).Where("created_by_id = ?", user.ID).Find(&created).Error; err != nil {
		return nil, 0, Internal(err, "failed listing created RFIs")
	}

	var direct []models.Rfi
	if err := s.DB.WithContext(ctx).
		Where("assigned_type = ? AND assigned_to_user_id = ?", models.AssignedTypeUser, user.ID).
		Find(&direct).Error; err != nil {
		return nil, 0, Internal(err, "failed listing assigned RFIs")
	}

	var viaGroups []models.Rfi
	if err := s.DB.WithContext(ctx).
		Joins("JOIN rfi_group_assignments ON rfi_group_assignments.rfi_id = rfis.id").
		Where("rfi_group_assignments.user_id = ?", user.ID).
		Find(&viaGroups).Error; err != nil {
		return nil, 0, Internal(err, "failed listing group-assigned RFIs")
	}

	projectIDs, err := s.userProjectIDs(ctx, user.ID)
	if err != nil {
		return nil, 0, err
	}
	var projectRfis []models.Rfi
	if len(projectIDs) > 0 {
		if err := s.DB.WithContext(ctx).Where("project_id IN ?", projectIDs).Find(&projectRfis).Error; err != nil {
			return nil, 0, Internal(err, "failed listing project RFIs")
		}
	}

	seen := make(map[uuid.UUID]bool)
	var unique []models.Rfi
	for _, batch := range [][]models.Rfi{created, direct, viaGroups, projectRfis} {
		for _, rfi := range batch {
			if !seen[rfi.ID] {
				seen[rfi.ID] = true
				unique = append(unique, rfi)
			}
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].CreatedAt.After(unique[j].CreatedAt)
	})

	total := int64(len(unique))
	page := paginateSlice(unique, offset, limit)

	responses, err := s.projectAll(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// OverdueRfis returns RFIs whose due date is strictly in the past,
// optionally scoped to one project (access-gated when scoped).
func (s *RfiService) OverdueRfis(ctx context.Context, requester *models.User, projectCode string) ([]RfiResponse, error) {
	query := s.DB.WithContext(ctx).Where("due_date < ?", time.Now())

	if projectCode != "" {
		var project models.Project
		if err := s.DB.WithContext(ctx).First(&project, "code = ?", projectCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("project not found with code: %s", projectCode)
			}
			return nil, Internal(err, "failed loading project")
		}
		if !s.Access.HasProjectAccess(ctx, requester.ID, project.ID) {
			return nil, Forbidden("you don't have access to project: %s", projectCode)
		}
		query = query.Where("project_id = ?", project.ID)
	}

	var rfis []models.Rfi
	if err := query.Order("due_date ASC").Find(&rfis).Error; err != nil {
		return nil, Internal(err, "failed listing overdue RFIs")
	}

	return s.projectAll(ctx, rfis)
}

// userProjectIDs collects the projects the user belongs to: membership
// rows plus projects the user created.
func (s *RfiService) userProjectIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var memberships []models.ProjectMembership
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, Internal(err, "failed listing memberships")
	}

	var createdProjects []models.Project
	if err := s.DB.WithContext(ctx).Where("created_by_id = ?", userID).Find(&createdProjects).Error; err != nil {
		return nil, Internal(err, "failed listing created projects")
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, membership := range memberships {
		if !seen[membership.ProjectID] {
			seen[membership.ProjectID] = true
			ids = append(ids, membership.ProjectID)
		}
	}
	for _, project := range createdProjects {
		if !seen[project.ID] {
			seen[project.ID] = true
			ids = append(ids, project.ID)
		}
	}
	return ids, nil
}

// Project loads the RFI aggregate and converts it to the external shape.
func (s *RfiService) Project(ctx context.Context, rfiID uuid.UUID) (*RfiResponse, error) {
	rfi, err := s.Find(ctx, rfiID)
	if err != nil {
		return nil, err
	}
	return s.ToResponse(rfi)
}

func (s *RfiService) projectAll(ctx context.Context, rfis []models.Rfi) ([]RfiResponse, error) {
	responses := make([]RfiResponse, 0, len(rfis))
	for _, rfi := range rfis {
		response, err := s.Project(ctx, rfi.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *response)
	}
	return responses, nil
}

// ToResponse projects an RFI aggregate. A missing project or creator is
// fatal; a broken reply is not — the replies list is dropped and the
// rest of the response survives.
func (s *RfiService) ToResponse(rfi *models.Rfi) (*RfiResponse, error) {
	if rfi.Project.ID == uuid.Nil {
		return nil, Internal(errors.New("rfi project not loaded"), "error processing RFI")
	}
	if rfi.CreatedBy.ID == uuid.Nil {
		return nil, Internal(errors.New("rfi creator not loaded"), "error processing RFI")
	}

	response := RfiResponse{
		ID:          rfi.ID.String(),
		Title:       rfi.Title,
		Description: rfi.Description,
		Status:      rfi.Status,
		Priority:    rfi.Priority,
		ProjectCode: rfi.Project.Code,
		DueDate:     rfi.DueDate,
		CreatedAt:   rfi.CreatedAt,
		CreatedBy: UserRef{
			ID:    rfi.CreatedBy.ID.String(),
			Email: rfi.CreatedBy.Email,
			Job:   rfi.CreatedBy.Job,
		},
		AssignedType: rfi.AssignedType,
	}

	if rfi.ResolvedBy != nil {
		response.ResolvedBy = &UserRef{
			ID:    rfi.ResolvedBy.ID.String(),
			Email: rfi.ResolvedBy.Email,
			Job:   rfi.ResolvedBy.Job,
		}
	}

	if rfi.AssignedType != nil {
		switch *rfi.AssignedType {
		case models.AssignedTypeUser:
			if rfi.AssignedToUser != nil {
				response.AssignedTo = &rfi.AssignedToUser.Email
			}
		case models.AssignedTypeGroup:
			if rfi.AssignedGroup != nil {
				response.AssignedTo = &rfi.AssignedGroup.Name
			}
		}
	}

	if len(rfi.Replies) > 0 {
		replies := make([]RfiReplyResponse, 0, len(rfi.Replies))
		ok := true
		for _, reply := range rfi.Replies {
			if reply.CreatedBy.ID == uuid.Nil {
				// Partial degradation: drop the whole replies list
				// rather than failing the response.
				logger.Error("rfi_reply_projection_failed", errors.New("reply author not loaded"), map[string]interface{}{
					"rfi_id":   rfi.ID.String(),
					"reply_id": reply.ID.String(),
				})
				ok = false
				break
			}
			replies = append(replies, RfiReplyResponse{
				ID:        reply.ID.String(),
				Content:   reply.Message,
				CreatedAt: reply.CreatedAt,
				CreatedBy: UserRef{
					ID:    reply.CreatedBy.ID.String(),
					Email: reply.CreatedBy.Email,
					Job:   reply.CreatedBy.Job,
				},
			})
		}
		if ok {
			response.Replies = replies
		}
	}

	return &response, nil
}

func paginateSlice(rfis []models.Rfi, offset, limit int) []models.Rfi {
	if offset >= len(rfis) {
		return nil
	}
	end := offset + limit
	if end > len(rfis) {
		end = len(rfis)
	}
	return rfis[offset:end]
}
