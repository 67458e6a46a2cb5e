package handlers

import (
	"strings"
	"time"

	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type RfisHandler struct {
	Service *services.RfiService
	Access  *services.AccessService
}

func NewRfisHandler(service *services.RfiService, access *services.AccessService) *RfisHandler {
	return &RfisHandler{Service: service, Access: access}
}

type createRfiRequest struct {
	ProjectCode       string             `json:"projectCode"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Priority          models.RfiPriority `json:"priority"`
	DueDate           *time.Time         `json:"dueDate"`
	AssignedToEmail   *string            `json:"assignedToEmail"`
	AssignedGroupName *string            `json:"assignedGroupName"`
}

// Create requires exactly one assignment target. The service accepts
// unassigned RFIs, the API does not.
func (h *RfisHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createRfiRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	if strings.TrimSpace(req.ProjectCode) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "projectCode is required")
	}
	if len(req.Description) > 1000 {
		return utils.Error(c, fiber.StatusBadRequest, "description must be at most 1000 characters")
	}

	switch req.Priority {
	case "":
		req.Priority = models.RfiPriorityMedium
	case models.RfiPriorityLow, models.RfiPriorityMedium, models.RfiPriorityHigh:
	default:
		return utils.Error(c, fiber.StatusBadRequest, "invalid priority: "+string(req.Priority))
	}

	hasUser := req.AssignedToEmail != nil && strings.TrimSpace(*req.AssignedToEmail) != ""
	hasGroup := req.AssignedGroupName != nil && strings.TrimSpace(*req.AssignedGroupName) != ""
	if !hasUser && !hasGroup {
		return utils.Error(c, fiber.StatusBadRequest, "either assignedToEmail or assignedGroupName is required")
	}
	if hasUser && hasGroup {
		return utils.Error(c, fiber.StatusBadRequest, "cannot assign to both user and group")
	}

	input := services.CreateRfiInput{
		ProjectCode: strings.TrimSpace(req.ProjectCode),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if hasUser {
		email := strings.TrimSpace(*req.AssignedToEmail)
		input.AssignedToEmail = &email
	}
	if hasGroup {
		name := strings.TrimSpace(*req.AssignedGroupName)
		input.AssignedGroupName = &name
	}

	response, err := h.Service.Create(c.Context(), user, input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, response)
}

// loadAccessible fetches the RFI and rejects callers without access to
// its project.
func (h *RfisHandler) loadAccessible(c *fiber.Ctx) (*models.Rfi, error) {
	user := middleware.GetCurrentUser(c)

	rfiID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, services.BadRequest("invalid RFI id")
	}

	rfi, err := h.Service.Find(c.Context(), rfiID)
	if err != nil {
		return nil, err
	}

	if !h.Access.HasProjectAccess(c.Context(), user.ID, rfi.ProjectID) {
		return nil, services.Forbidden("you don't have access to project: %s", rfi.Project.Code)
	}

	return rfi, nil
}

func (h *RfisHandler) Get(c *fiber.Ctx) error {
	rfi, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	response, err := h.Service.ToResponse(rfi)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, response)
}

type updateRfiRequest struct {
	Title             *string             `json:"title"`
	Description       *string             `json:"description"`
	Priority          *models.RfiPriority `json:"priority"`
	Status            *models.RfiStatus   `json:"status"`
	DueDate           *time.Time          `json:"dueDate"`
	AssignedToEmail   *string             `json:"assignedToEmail"`
	AssignedGroupName *string             `json:"assignedGroupName"`
}

func (h *RfisHandler) Update(c *fiber.Ctx) error {
	rfi, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	var req updateRfiRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title cannot be empty")
	}
	if req.Description != nil && len(*req.Description) > 1000 {
		return utils.Error(c, fiber.StatusBadRequest, "description must be at most 1000 characters")
	}
	if req.Priority != nil {
		switch *req.Priority {
		case models.RfiPriorityLow, models.RfiPriorityMedium, models.RfiPriorityHigh:
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid priority: "+string(*req.Priority))
		}
	}

	response, err := h.Service.Update(c.Context(), rfi.ID, services.UpdateRfiInput{
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		Status:            req.Status,
		DueDate:           req.DueDate,
		AssignedToEmail:   req.AssignedToEmail,
		AssignedGroupName: req.AssignedGroupName,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, response)
}

type rfiMessageRequest struct {
	Message string `json:"message"`
}

func (h *RfisHandler) Resolve(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	rfi, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	var req rfiMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "message is required")
	}

	response, err := h.Service.Resolve(c.Context(), user, rfi.ID, req.Message)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, response)
}

func (h *RfisHandler) Reply(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	rfi, err := h.loadAccessible(c)
	if err != nil {
		return serviceError(c, err)
	}

	var req rfiMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "message is required")
	}

	response, err := h.Service.Reply(c.Context(), user, rfi.ID, req.Message)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, response)
}

func (h *RfisHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	rfiID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid RFI id")
	}

	if err := h.Service.Delete(c.Context(), user, rfiID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *RfisHandler) ByProject(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		switch models.RfiStatus(status) {
		case models.RfiStatusPending, models.RfiStatusResolved:
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid status: "+status)
		}
	}

	rfis, total, err := h.Service.ProjectRfis(c.Context(), user, c.Params("code"), status, p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginated(c, rfis, p.Page, p.Limit, total)
}

func (h *RfisHandler) Assigned(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	rfis, total, err := h.Service.AssignedRfis(c.Context(), user, p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginated(c, rfis, p.Page, p.Limit, total)
}

func (h *RfisHandler) Created(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	rfis, total, err := h.Service.CreatedRfis(c.Context(), user, p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginated(c, rfis, p.Page, p.Limit, total)
}

func (h *RfisHandler) Related(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	p := utils.ParsePagination(c)

	rfis, total, err := h.Service.AllRelatedRfis(c.Context(), user, p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginated(c, rfis, p.Page, p.Limit, total)
}

func (h *RfisHandler) Overdue(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	rfis, err := h.Service.OverdueRfis(c.Context(), user, strings.TrimSpace(c.Query("projectCode")))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, rfis)
}
