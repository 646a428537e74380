package handler

import (
	"net/http"

	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ExamHandler struct {
	svc *service.ExamService
}

func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{svc: svc}
}

func (h *ExamHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ExamInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	e, err := h.svc.CreateExam(c.Request.Context(), a, courseID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *ExamHandler) AddQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.svc.AddQuestion(c.Request.Context(), a, examID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             q.ID,
		"exam_id":        q.ExamID,
		"text":           q.Text,
		"options":        q.OptionList(),
		"correct_answer": q.CorrectAnswer,
		"points":         q.Points,
		"position":       q.Position,
	})
}

func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListForCourse handles GET /courses/:id/exams.
func (h *ExamHandler) ListForCourse(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListForCourse(c.Request.Context(), a, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exams": list})
}

// Get returns the exam with answer keys hidden from students.
func (h *ExamHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Submit scores {answers: {question_id: option_index}} on the server.
func (h *ExamHandler) Submit(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Answers map[uint]int `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), a, id, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ExamHandler) Attempts(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Attempts(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": list})
}
