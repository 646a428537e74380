package handler

import (
	"net/http"

	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	svc       *service.CourseService
	enrollSvc *service.EnrollmentService
	auditRepo repository.AuditLogStore
}

func NewCourseHandler(svc *service.CourseService, enrollSvc *service.EnrollmentService, auditRepo repository.AuditLogStore) *CourseHandler {
	return &CourseHandler{svc: svc, enrollSvc: enrollSvc, auditRepo: auditRepo}
}

func courseFilter(c *gin.Context) repository.CourseFilter {
	page, limit := parsePagination(c)
	return repository.CourseFilter{
		Search:     c.Query("search"),
		CategoryID: queryUint(c, "category"),
		Status:     c.Query("status"),
		Page:       page,
		Limit:      limit,
	}
}

func respondPage(c *gin.Context, p *service.CoursePage) {
	c.JSON(http.StatusOK, gin.H{"data": p.Items, "total": p.Total, "page": p.Page, "limit": p.Limit})
}

// List is the public catalogue of published courses.
func (h *CourseHandler) List(c *gin.Context) {
	res, err := h.svc.ListPublished(c.Request.Context(), courseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, res)
}

// Get shows a course. Lesson bodies are hidden unless the caller has access.
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.GetDetail(c.Request.Context(), id, viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Enroll handles POST /courses/:id/enroll for free courses.
func (h *CourseHandler) Enroll(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.enrollSvc.EnrollFree(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrollment": e})
}

func (h *CourseHandler) ListMine(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	res, err := h.svc.ListForInstructor(c.Request.Context(), a, courseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, res)
}

// ListAll handles GET /admin/courses across every status.
func (h *CourseHandler) ListAll(c *gin.Context) {
	res, err := h.svc.ListAll(c.Request.Context(), courseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, res)
}

func (h *CourseHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CourseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	course, err := h.svc.Create(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.CourseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	course, err := h.svc.Update(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, a.ID, "course_deleted", "course", formatID(id), nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetStatus serves both the instructor and the admin status routes.
func (h *CourseHandler) SetStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=draft published archived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	course, err := h.svc.SetStatus(c.Request.Context(), a, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, a.ID, "course_status_changed", "course", formatID(id), map[string]interface{}{"status": req.Status})
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) AddLesson(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.LessonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	l, err := h.svc.AddLesson(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.LessonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	l, err := h.svc.UpdateLesson(c.Request.Context(), a, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteLesson(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CourseHandler) Students(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	res, err := h.svc.Students(c.Request.Context(), a, id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Items, "total": res.Total, "page": res.Page, "limit": res.Limit})
}
