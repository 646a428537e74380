package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	authSvc       *service.AuthService
	enrollmentSvc *service.EnrollmentService
	paymentSvc    *service.PaymentService
}

func NewMeHandler(authSvc *service.AuthService, enrollmentSvc *service.EnrollmentService, paymentSvc *service.PaymentService) *MeHandler {
	return &MeHandler{authSvc: authSvc, enrollmentSvc: enrollmentSvc, paymentSvc: paymentSvc}
}

func (h *MeHandler) Get(c *gin.Context) {
	u, err := h.authSvc.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *MeHandler) Update(c *gin.Context) {
	var req struct {
		Name      *string `json:"name" binding:"omitempty,min=2,max=120"`
		Bio       *string `json:"bio" binding:"omitempty,max=2000"`
		AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.authSvc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Bio, req.AvatarURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// RegisterFCMToken saves the device token used for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.authSvc.UpdateFCMToken(c.Request.Context(), middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MeHandler) Enrollments(c *gin.Context) {
	list, err := h.enrollmentSvc.MyEnrollments(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": list})
}

func (h *MeHandler) Progress(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.enrollmentSvc.Progress(c.Request.Context(), a, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *MeHandler) CompleteLesson(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(c, "lessonId")
	if !ok {
		return
	}
	p, err := h.enrollmentSvc.CompleteLesson(c.Request.Context(), a, courseID, lessonID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *MeHandler) Payments(c *gin.Context) {
	list, err := h.paymentSvc.MyPayments(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}
