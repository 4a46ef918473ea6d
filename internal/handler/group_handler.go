package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/school-roster/roster-api/internal/models"
	"github.com/school-roster/roster-api/internal/service"
	appErrors "github.com/school-roster/roster-api/pkg/errors"
	"github.com/school-roster/roster-api/pkg/response"
)

// GroupHandler handles group endpoints.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler constructs a group handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// List returns groups filtered by query params.
func (h *GroupHandler) List(c *gin.Context) {
	var filter models.GroupFilter
	if grade, err := strconv.Atoi(c.Query("grade")); err == nil {
		filter.Grade = grade
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	groups, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, pagination)
}

// Get returns a group with its required subjects.
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	group, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create stores a new group.
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// BulkCreate stores several groups at once.
func (h *GroupHandler) BulkCreate(c *gin.Context) {
	var reqs []service.CreateGroupRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.BulkCreate(c.Request.Context(), reqs); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Update modifies an existing group.
func (h *GroupHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete removes a group.
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
