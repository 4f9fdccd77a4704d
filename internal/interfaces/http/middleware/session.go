// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie carries the guest cart session id
	SessionCookie = "session_id"
	// ContextSessionID is the gin key holding the resolved session id
	ContextSessionID = "session_id"
)

// Session makes sure every guest has a session id. The id comes from the
// session cookie or the X-Session-ID header; a new one is issued otherwise.
func Session(ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || !validSessionID(sessionID) {
			sessionID = c.GetHeader("X-Session-ID")
		}
		if !validSessionID(sessionID) {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sessionID, int(ttl.Seconds()), "/", "", secure, true)
		}

		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// GetSessionIDFromContext returns the session id set by Session
func GetSessionIDFromContext(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
