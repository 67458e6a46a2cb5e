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

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Job      *string `json:"job"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates the account together with a personal starter project
// the user administers, so a fresh account is immediately usable.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return utils.Error(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if req.Username == "" {
		return utils.Error(c, fiber.StatusBadRequest, "username is required")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var existing models.User
	err := h.DB.First(&existing, "email = ? OR username = ?", req.Email, req.Username).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "email or username already in use")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Job:          req.Job,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		code, err := services.GenerateProjectCode(tx)
		if err != nil {
			return err
		}

		project := models.Project{
			Code:        code,
			Name:        req.Username + "'s Project",
			CreatedByID: user.ID,
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
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		user.CurrentProjectID = &project.ID
		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("current_project_id", project.ID).Error
	})
	if err != nil {
		logger.Error("registration_failed", err, map[string]interface{}{
			"email": req.Email,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating account")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": user.Email,
	})

	return utils.Success(c, fiber.StatusCreated, authResponse{Token: token, User: &user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_unknown_email", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.WarnWithUser(user.ID.String(), "login_wrong_password", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "user_logged_in", nil)

	return utils.Success(c, fiber.StatusOK, authResponse{Token: token, User: &user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type updateMeRequest struct {
	Username *string `json:"username"`
	Job      *string `json:"job"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return utils.Error(c, fiber.StatusBadRequest, "username cannot be empty")
		}
		var existing models.User
		err := h.DB.First(&existing, "username = ? AND id <> ?", username, user.ID).Error
		if err == nil {
			return utils.Error(c, fiber.StatusConflict, "username already in use")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
		}
		updates["username"] = username
	}
	if req.Job != nil {
		job := strings.TrimSpace(*req.Job)
		if job == "" {
			updates["job"] = nil
		} else {
			updates["job"] = job
		}
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "nothing to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}

	return utils.Success(c, fiber.StatusOK, &updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		logger.WarnWithUser(user.ID.String(), "password_change_wrong_current", nil)
		return utils.Error(c, fiber.StatusUnauthorized, "current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("password_hash", hash).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating password")
	}

	logger.InfoWithUser(user.ID.String(), "password_changed", nil)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"changed": true})
}
