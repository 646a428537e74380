package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	svc       *service.CourseService
	auditRepo repository.AuditLogStore
}

func NewCategoryHandler(svc *service.CourseService, auditRepo repository.AuditLogStore) *CategoryHandler {
	return &CategoryHandler{svc: svc, auditRepo: auditRepo}
}

func (h *CategoryHandler) List(c *gin.Context) {
	list, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=120"`
		Description string `json:"description" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, middleware.GetUserID(c), "category_created", "category", formatID(cat.ID), nil)
	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=120"`
		Description *string `json:"description" binding:"omitempty,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, middleware.GetUserID(c), "category_updated", "category", formatID(id), nil)
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, middleware.GetUserID(c), "category_deleted", "category", formatID(id), nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
