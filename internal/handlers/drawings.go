package handlers

import (
	"errors"
	"fmt"

	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/internal/storage"
	"github.com/contraco/backend/pkg/logger"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxDrawingSize = 100 << 20 // 100 MiB

type DrawingsHandler struct {
	DB      *gorm.DB
	Access  *services.AccessService
	Storage *storage.MinIOClient
}

func NewDrawingsHandler(db *gorm.DB, access *services.AccessService, store *storage.MinIOClient) *DrawingsHandler {
	return &DrawingsHandler{DB: db, Access: access, Storage: store}
}

func (h *DrawingsHandler) loadProject(c *fiber.Ctx) (*models.Project, error) {
	user := middleware.GetCurrentUser(c)
	code := c.Params("code")

	var project models.Project
	if err := h.DB.First(&project, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound("project not found with code: %s", code)
		}
		return nil, services.Internal(err, "failed loading project")
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, project.ID) {
		return nil, services.Forbidden("you don't have access to project: %s", code)
	}

	return &project, nil
}

// Upload stores the file in the object store first, then records it; the
// stored object is removed again if the record cannot be written.
func (h *DrawingsHandler) Upload(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	project, err := h.loadProject(c)
	if err != nil {
		return serviceError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxDrawingSize {
		return utils.Error(c, fiber.StatusBadRequest, "file exceeds the 100 MiB limit")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	drawing := models.Drawing{
		Name:         fileHeader.Filename,
		ContentType:  contentType,
		Size:         fileHeader.Size,
		ProjectID:    project.ID,
		UploadedByID: user.ID,
	}
	drawing.ID = uuid.New()
	drawing.StoragePath = fmt.Sprintf("%s/%s", project.ID, drawing.ID)

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer file.Close()

	if err := h.Storage.Upload(c.Context(), drawing.StoragePath, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	if err := h.DB.Create(&drawing).Error; err != nil {
		if removeErr := h.Storage.Delete(c.Context(), drawing.StoragePath); removeErr != nil {
			logger.Error("drawing_orphan_cleanup_failed", removeErr, map[string]interface{}{
				"storage_path": drawing.StoragePath,
			})
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording drawing")
	}

	logger.InfoWithUser(user.ID.String(), "drawing_uploaded", map[string]interface{}{
		"drawing_id":   drawing.ID.String(),
		"project_code": project.Code,
		"size":         drawing.Size,
	})

	return utils.Success(c, fiber.StatusCreated, drawing)
}

func (h *DrawingsHandler) List(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return serviceError(c, err)
	}

	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Drawing{}).Where("project_id = ?", project.ID).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting drawings")
	}

	var drawings []models.Drawing
	err = utils.ApplyPagination(
		h.DB.Preload("UploadedBy").Where("project_id = ?", project.ID).Order("created_at DESC"), p,
	).Find(&drawings).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing drawings")
	}

	return utils.Paginated(c, drawings, p.Page, p.Limit, total)
}

func (h *DrawingsHandler) loadAccessible(c *fiber.Ctx) (*models.Drawing, error) {
	user := middleware.GetCurrentUser(c)

	drawingID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, services.BadRequest("invalid drawing id")
	}

	var drawing models.Drawing
	if err := h.DB.First(&drawing, "id = ?", drawingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound("drawing not found")
		}
		return nil, services.Internal(err, "failed loading drawing")
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, drawing.ProjectID) {
		return nil, services.Forbidden("you don't have access to this drawing")
	}

	return &drawing, nil
}

func (h *DrawingsHandler) Download(c *fiber.Ctx) error {
	drawing, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	object, err := h.Storage.Download(c.Context(), drawing.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching file")
	}

	c.Set(fiber.HeaderContentType, drawing.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", drawing.Name))
	return c.SendStream(object, int(drawing.Size))
}

// Delete removes record and object. Allowed for the uploader and for
// project admins.
func (h *DrawingsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	drawing, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	if drawing.UploadedByID != user.ID && !h.Access.IsProjectAdmin(c.Context(), user.ID, drawing.ProjectID) {
		return utils.Error(c, fiber.StatusForbidden, "only the uploader or a project admin can delete this drawing")
	}

	if err := h.DB.Delete(&models.Drawing{}, "id = ?", drawing.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting drawing")
	}

	if err := h.Storage.Delete(c.Context(), drawing.StoragePath); err != nil {
		logger.Error("drawing_object_delete_failed", err, map[string]interface{}{
			"storage_path": drawing.StoragePath,
		})
	}

	logger.InfoWithUser(user.ID.String(), "drawing_deleted", map[string]interface{}{
		"drawing_id": drawing.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
