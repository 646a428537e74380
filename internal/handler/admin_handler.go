package handler

import (
	"errors"
	"net/http"
	"strconv"

	"learnhub/internal/domain"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminRepo *repository.AdminRepository
	auditRepo *repository.AuditLogRepository
	authSvc   *service.AuthService
}

func NewAdminHandler(adminRepo *repository.AdminRepository, auditRepo *repository.AuditLogRepository, authSvc *service.AuthService) *AdminHandler {
	return &AdminHandler{adminRepo: adminRepo, auditRepo: auditRepo, authSvc: authSvc}
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.adminRepo.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Analytics handles GET /admin/analytics?days=30.
func (h *AdminHandler) Analytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 || days > 365 {
		days = 30
	}
	ctx := c.Request.Context()
	signups, err := h.adminRepo.UserSignupsByDay(ctx, days)
	if err != nil {
		respondError(c, err)
		return
	}
	revenue, err := h.adminRepo.RevenueByDay(ctx, days)
	if err != nil {
		respondError(c, err)
		return
	}
	enrollments, err := h.adminRepo.EnrollmentsByDay(ctx, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signups":     signups,
		"revenue":     revenue,
		"enrollments": enrollments,
		"days":        days,
	})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)
	users, total, err := h.adminRepo.ListUsers(c.Request.Context(), c.Query("search"), c.Query("role"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users, "total": total, "page": page, "limit": limit})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	u, err := h.authSvc.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateUser handles PATCH /admin/users/:id. Only role and is_active change.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role     *string `json:"role" binding:"omitempty,oneof=ADMIN INSTRUCTOR STUDENT"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	adminID := middleware.GetUserID(c)
	updates := make(map[string]interface{})
	if req.Role != nil {
		if id == adminID && *req.Role != domain.RoleAdmin {
			badRequest(c, "you cannot change your own role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		if id == adminID && !*req.IsActive {
			badRequest(c, "you cannot disable your own account")
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		badRequest(c, "no valid fields to update")
		return
	}
	if err := h.adminRepo.UpdateUser(c.Request.Context(), id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, service.ErrNotFound)
			return
		}
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, adminID, "admin_user_updated", "user", formatID(id), updates)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AuditLogs handles GET /admin/audit-logs.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.auditRepo.List(c.Request.Context(), c.Query("action"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}
