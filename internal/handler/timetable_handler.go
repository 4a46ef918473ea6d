package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/school-roster/roster-api/internal/service"
	appErrors "github.com/school-roster/roster-api/pkg/errors"
	"github.com/school-roster/roster-api/pkg/response"
)

// TimetableHandler handles schedule generation and timetable views.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate runs the scheduler over the current domain and replaces the
// stored schedule.
func (h *TimetableHandler) Generate(c *gin.Context) {
	result, err := h.service.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List returns the whole stored schedule.
func (h *TimetableHandler) List(c *gin.Context) {
	assignments, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// ForGroup returns one group's timetable.
func (h *TimetableHandler) ForGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	assignments, err := h.service.ForGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// ForTeacher returns one teacher's timetable.
func (h *TimetableHandler) ForTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	assignments, err := h.service.ForTeacher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// ExportGroup streams one group's timetable as CSV or PDF.
func (h *TimetableHandler) ExportGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.service.ExportGroup(c.Request.Context(), id, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// pathID parses the :id path parameter, writing the error response itself
// on failure.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}
