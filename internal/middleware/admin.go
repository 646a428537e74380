package middleware

import (
	"net/http"

	"learnhub/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired checks that the authenticated user has the ADMIN role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "message": "admin access required"})
			return
		}
		c.Next()
	}
}

// InstructorRequired admits instructors and admins. Ownership of a
// particular course is checked by the services.
func InstructorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.GetString("role") {
		case domain.RoleInstructor, domain.RoleAdmin:
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "instructor access required", "message": "instructor access required"})
		}
	}
}
