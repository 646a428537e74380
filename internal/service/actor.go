package service

import (
	"learnhub/internal/domain"
	"learnhub/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsAdmin() bool      { return a.Role == domain.RoleAdmin }
func (a Actor) IsInstructor() bool { return a.Role == domain.RoleInstructor }

// CanManage reports whether a may edit and moderate course c.
func (a Actor) CanManage(c *models.Course) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsInstructor() && c.InstructorID == a.ID
}

func pageDefaults(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
