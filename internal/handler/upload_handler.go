package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"learnhub/internal/service"
	"learnhub/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxImageSize = 10 << 20
	maxVideoSize = 500 << 20
)

type UploadHandler struct {
	cloud     cloudinary.Client
	courseSvc *service.CourseService
}

func NewUploadHandler(cloud cloudinary.Client, courseSvc *service.CourseService) *UploadHandler {
	return &UploadHandler{cloud: cloud, courseSvc: courseSvc}
}

func newPublicID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

func (h *UploadHandler) available(c *gin.Context) bool {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media uploads not configured", "message": "media uploads not configured"})
		return false
	}
	return true
}

// CourseThumbnail uploads an image and makes it the course thumbnail. The
// previous thumbnail is removed from Cloudinary.
func (h *UploadHandler) CourseThumbnail(c *gin.Context) {
	if !h.available(c) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.courseSvc.Managed(ctx, a, id); err != nil {
		respondError(c, err)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if file.Size > maxImageSize {
		badRequest(c, "image too large")
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		badRequest(c, "file must be an image")
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer f.Close()

	res, err := h.cloud.UploadImage(ctx, f, "learnhub/courses/"+formatID(id), newPublicID("thumb"))
	if err != nil {
		slog.ErrorContext(ctx, "thumbnail upload failed", "course_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed", "message": "upload failed"})
		return
	}
	course, previous, err := h.courseSvc.SetThumbnail(ctx, a, id, res.URL)
	if err != nil {
		_ = h.cloud.DeleteByURL(ctx, res.URL)
		respondError(c, err)
		return
	}
	if previous != "" {
		if err := h.cloud.DeleteByURL(ctx, previous); err != nil {
			slog.WarnContext(ctx, "old thumbnail not removed", "course_id", id, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"course": course, "url": res.URL, "thumbnail_url": res.ThumbnailURL})
}

// LessonVideo uploads a lesson video and stores its URL and duration.
func (h *UploadHandler) LessonVideo(c *gin.Context) {
	if !h.available(c) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	lesson, err := h.courseSvc.ManagedLesson(ctx, a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if file.Size > maxVideoSize {
		badRequest(c, "video too large")
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer f.Close()

	res, err := h.cloud.UploadVideo(ctx, f, "learnhub/courses/"+formatID(lesson.CourseID)+"/lessons", newPublicID("video"))
	if err != nil {
		slog.ErrorContext(ctx, "video upload failed", "lesson_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed", "message": "upload failed"})
		return
	}
	previous := lesson.VideoURL
	in := service.LessonInput{VideoURL: &res.URL}
	if res.DurationSecs > 0 {
		in.DurationSeconds = &res.DurationSecs
	}
	updated, err := h.courseSvc.UpdateLesson(ctx, a, id, in)
	if err != nil {
		_ = h.cloud.DeleteByURL(ctx, res.URL)
		respondError(c, err)
		return
	}
	if previous != "" && previous != res.URL {
		if err := h.cloud.DeleteByURL(ctx, previous); err != nil {
			slog.WarnContext(ctx, "old video not removed", "lesson_id", id, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"lesson": updated, "url": res.URL})
}
