package handlers

import (
	"strings"

	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type GroupsHandler struct {
	Service *services.GroupService
}

func NewGroupsHandler(service *services.GroupService) *GroupsHandler {
	return &GroupsHandler{Service: service}
}

type createGroupRequest struct {
	ProjectCode string   `json:"projectCode"`
	Name        string   `json:"name"`
	Members     []string `json:"members"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	if strings.TrimSpace(req.ProjectCode) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "projectCode is required")
	}

	group, err := h.Service.CreateGroup(c.Context(), user, req.ProjectCode, req.Name, req.Members)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, group)
}

type addGroupMembersRequest struct {
	Usernames []string `json:"usernames"`
}

func (h *GroupsHandler) AddMembers(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req addGroupMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Usernames) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "usernames is required")
	}

	added, err := h.Service.AddGroupMembers(c.Context(), user, groupID, req.Usernames)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"added": added})
}

func (h *GroupsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Service.DeleteGroup(c.Context(), user, groupID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *GroupsHandler) MyGroups(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	groups, err := h.Service.UserGroups(c.Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) ProjectGroups(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	code := c.Params("code")

	groups, err := h.Service.ProjectGroups(c.Context(), user, code)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, groups)
}
