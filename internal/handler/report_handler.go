package handler

import (
	"net/http"

	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Create handles POST /forum/reports.
func (h *ReportHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.ReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.svc.Create(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// List serves the admin queue and the instructor queue. The service scopes
// instructors to their own courses.
func (h *ReportHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	res, err := h.svc.List(c.Request.Context(), a, repository.ReportFilter{
		Status:       c.Query("status"),
		Reason:       c.Query("reason"),
		CourseID:     queryUint(c, "course_id"),
		TargetUserID: queryUint(c, "target_user_id"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Items, "total": res.Total, "page": res.Page, "limit": res.Limit})
}

// Action resolves or rejects a pending report.
func (h *ReportHandler) Action(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ReportAction
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.svc.Action(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
