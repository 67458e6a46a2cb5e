package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/pkg/logger"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProjectsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewProjectsHandler(db *gorm.DB, access *services.AccessService) *ProjectsHandler {
	return &ProjectsHandler{DB: db, Access: access}
}

type createProjectRequest struct {
	Name         string     `json:"name"`
	DueDate      *time.Time `json:"dueDate"`
	ProjectOwner *string    `json:"projectOwner"`
	Address      *string    `json:"address"`
}

// Create allocates a fresh PROJ-NNN code and makes the creator an ADMIN
// member in the same transaction.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var project models.Project
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		code, err := services.GenerateProjectCode(tx)
		if err != nil {
			return err
		}

		project = models.Project{
			Code:         code,
			Name:         req.Name,
			CreatedByID:  user.ID,
			DueDate:      req.DueDate,
			ProjectOwner: req.ProjectOwner,
			Address:      req.Address,
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		membership := models.ProjectMembership{
			UserID:    user.ID,
			ProjectID: project.ID,
			Role:      models.ProjectRoleAdmin,
			JoinedAt:  time.Now().UTC(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "project_create_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating project")
	}

	logger.InfoWithUser(user.ID.String(), "project_created", map[string]interface{}{
		"project_id":   project.ID.String(),
		"project_code": project.Code,
	})

	return utils.Success(c, fiber.StatusCreated, project)
}

type joinProjectRequest struct {
	Code string `json:"code"`
}

// Join adds the caller to an existing project as MEMBER. Joining twice
// is a conflict.
func (h *ProjectsHandler) Join(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req joinProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	var project models.Project
	if err := h.DB.First(&project, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "project not found with code: "+code)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	if h.Access.HasProjectAccess(c.Context(), user.ID, project.ID) {
		return utils.Error(c, fiber.StatusConflict, "you are already a member of this project")
	}

	membership := models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: project.ID,
		Role:      models.ProjectRoleMember,
		JoinedAt:  time.Now().UTC(),
	}
	if err := h.DB.Create(&membership).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed joining project")
	}

	logger.InfoWithUser(user.ID.String(), "project_joined", map[string]interface{}{
		"project_code": project.Code,
	})

	return utils.Success(c, fiber.StatusOK, project)
}

// List returns every project the caller belongs to, newest first.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var projects []models.Project
	err := h.DB.
		Distinct("projects.*").
		Joins("LEFT JOIN project_memberships ON project_memberships.project_id = projects.id").
		Where("projects.created_by_id = ? OR project_memberships.user_id = ?", user.ID, user.ID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing projects")
	}

	return utils.Success(c, fiber.StatusOK, projects)
}

// Get returns a single project by code, access-gated.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	code := c.Params("code")

	var project models.Project
	if err := h.DB.Preload("CreatedBy").First(&project, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "project not found with code: "+code)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, project.ID) {
		return utils.Error(c, fiber.StatusForbidden, "you don't have access to project: "+code)
	}

	return utils.Success(c, fiber.StatusOK, project)
}

type projectUserResponse struct {
	ID       string             `json:"id"`
	Email    string             `json:"email"`
	Username string             `json:"username"`
	Job      *string            `json:"job,omitempty"`
	Role     models.ProjectRole `json:"role"`
}

// Users lists the members of a project with their project role.
func (h *ProjectsHandler) Users(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	code := c.Params("code")

	var project models.Project
	if err := h.DB.First(&project, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "project not found with code: "+code)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, project.ID) {
		return utils.Error(c, fiber.StatusForbidden, "you don't have access to project: "+code)
	}

	var memberships []models.ProjectMembership
	err := h.DB.Preload("User").
		Where("project_id = ?", project.ID).
		Order("joined_at ASC").
		Find(&memberships).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing project users")
	}

	users := make([]projectUserResponse, 0, len(memberships))
	seen := make(map[string]bool, len(memberships))
	for _, membership := range memberships {
		users = append(users, projectUserResponse{
			ID:       membership.User.ID.String(),
			Email:    membership.User.Email,
			Username: membership.User.Username,
			Job:      membership.User.Job,
			Role:     membership.Role,
		})
		seen[membership.User.ID.String()] = true
	}

	// The creator may predate membership rows; surface them as ADMIN.
	if !seen[project.CreatedByID.String()] {
		var creator models.User
		if err := h.DB.First(&creator, "id = ?", project.CreatedByID).Error; err == nil {
			users = append(users, projectUserResponse{
				ID:       creator.ID.String(),
				Email:    creator.Email,
				Username: creator.Username,
				Job:      creator.Job,
				Role:     models.ProjectRoleAdmin,
			})
		}
	}

	return utils.Success(c, fiber.StatusOK, users)
}

type currentProjectRequest struct {
	Code string `json:"code"`
}

// SetCurrentProject switches the caller's working project.
func (h *ProjectsHandler) SetCurrentProject(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req currentProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	code := strings.TrimSpace(req.Code)
	var project models.Project
	if err := h.DB.First(&project, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "project not found with code: "+code)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading project")
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, project.ID) {
		return utils.Error(c, fiber.StatusForbidden, "you don't have access to project: "+code)
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("current_project_id", project.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed switching project")
	}

	logger.InfoWithUser(user.ID.String(), "current_project_changed", map[string]interface{}{
		"project_code": project.Code,
	})

	return utils.Success(c, fiber.StatusOK, project)
}
