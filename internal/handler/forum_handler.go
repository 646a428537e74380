package handler

import (
	"net/http"

	"learnhub/internal/domain"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ForumHandler struct {
	svc *service.ForumService
}

func NewForumHandler(svc *service.ForumService) *ForumHandler {
	return &ForumHandler{svc: svc}
}

func (h *ForumHandler) ListQuestions(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "courseId")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	res, err := h.svc.ListQuestions(c.Request.Context(), a, courseID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Items, "total": res.Total, "page": res.Page, "limit": res.Limit})
}

func (h *ForumHandler) CreateQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "courseId")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required,max=255"`
		Body  string `json:"body" binding:"required,max=20000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.svc.CreateQuestion(c.Request.Context(), a, courseID, req.Title, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// GetThread returns a question with its answers and their reply trees.
func (h *ForumHandler) GetThread(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetThread(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *ForumHandler) CreateAnswer(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required,max=20000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ans, err := h.svc.CreateAnswer(c.Request.Context(), a, id, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ans)
}

// CreateReply posts under an answer. parent_id nests it under another reply.
func (h *ForumHandler) CreateReply(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	answerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ReplyText string `json:"reply_text" binding:"required,max=10000"`
		ParentID  *uint  `json:"parent_id" binding:"omitempty,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.svc.CreateReply(c.Request.Context(), a, answerID, req.ReplyText, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *ForumHandler) ToggleLock(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	q, err := h.svc.ToggleLock(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *ForumHandler) ToggleSolve(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		AnswerID uint `json:"answer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.svc.ToggleSolve(c.Request.Context(), a, id, req.AnswerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *ForumHandler) DeleteQuestion(c *gin.Context) { h.delete(c, domain.TargetQuestion) }
func (h *ForumHandler) DeleteAnswer(c *gin.Context)   { h.delete(c, domain.TargetAnswer) }
func (h *ForumHandler) DeleteReply(c *gin.Context)    { h.delete(c, domain.TargetReply) }

// delete soft-deletes a post. The reason may come as {reason} or ?reason=.
func (h *ForumHandler) delete(c *gin.Context, targetType string) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}
	if err := h.svc.Delete(c.Request.Context(), a, targetType, id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
