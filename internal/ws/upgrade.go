package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"learnhub/config"
	"learnhub/internal/auth"
	"learnhub/internal/models"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// AccessChecker decides whether a user may follow a course forum.
type AccessChecker interface {
	RequireAccess(ctx context.Context, actor service.Actor, courseID uint) (*models.Course, error)
}

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// ServeForum upgrades GET /ws/forum?course_id=&token= after checking the
// token and the caller's access to the course. The connection is read-only
// for the client; events flow from the hub.
func ServeForum(cfg *config.JWTConfig, hub *Hub, access AccessChecker, origins []string) gin.HandlerFunc {
	upgrader := newUpgrader(origins)
	return func(c *gin.Context) {
		token := c.Query("token")
		courseID, err := strconv.ParseUint(c.Query("course_id"), 10, 64)
		if token == "" || err != nil || courseID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and course_id required", "message": "token and course_id required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "message": "invalid token"})
			return
		}
		actor := service.Actor{ID: claims.UserID, Role: claims.Role}
		if _, err := access.RequireAccess(c.Request.Context(), actor, uint(courseID)); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "message": err.Error()})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(claims.UserID, claims.Role, uint(courseID))
		hub.Register(client)
		defer client.Close()

		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection and keeps it alive.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and returns when the peer goes away.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
