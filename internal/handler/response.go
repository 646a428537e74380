package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"learnhub/internal/auth"
	"learnhub/internal/middleware"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNoAccess, http.StatusForbidden},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidOTP, http.StatusBadRequest},
	{service.ErrInvalidParent, http.StatusBadRequest},
	{service.ErrExamEmpty, http.StatusBadRequest},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrNoPassword, http.StatusBadRequest},
	{service.ErrEmailExists, http.StatusConflict},
	{service.ErrSlugTaken, http.StatusConflict},
	{service.ErrCategoryInUse, http.StatusConflict},
	{service.ErrAlreadyEnrolled, http.StatusConflict},
	{service.ErrDuplicateReport, http.StatusConflict},
	{service.ErrReportClosed, http.StatusConflict},
	{service.ErrAlreadyDeleted, http.StatusConflict},
	{service.ErrQuestionLocked, http.StatusLocked},
	{service.ErrAttemptsExhausted, http.StatusConflict},
	{service.ErrOTPThrottled, http.StatusTooManyRequests},
	{service.ErrInvalidCreds, http.StatusUnauthorized},
	{service.ErrTokenRevoked, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrAccountDisabled, http.StatusForbidden},
	{service.ErrSelfReport, http.StatusUnprocessableEntity},
	{service.ErrPaidCourse, http.StatusUnprocessableEntity},
	{service.ErrFreeCourse, http.StatusUnprocessableEntity},
	{service.ErrNotPublished, http.StatusUnprocessableEntity},
	{service.ErrPaymentFailed, http.StatusUnprocessableEntity},
	{service.ErrAmountMismatch, http.StatusUnprocessableEntity},
	{service.ErrProvider, http.StatusBadGateway},
}

// statusFor maps a service error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Internal errors are logged
// and masked.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "message": msg})
}

// actor returns the authenticated caller or answers 401.
func actor(c *gin.Context) (service.Actor, bool) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "unauthorized"})
	}
	return a, ok
}

// viewer returns the caller for routes that also serve anonymous users.
func viewer(c *gin.Context) *service.Actor {
	a, ok := middleware.GetActor(c)
	if !ok {
		return nil
	}
	return &a
}

// parseID reads a positive numeric path parameter or answers 400.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
