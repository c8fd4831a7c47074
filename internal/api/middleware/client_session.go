package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yoockh/texttalk/internal/services"
)

type ClientCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// ClientSession identifies the browser by an opaque cookie, minting one on
// first contact, and attaches that client's workspace to the request.
func ClientSession(cookie ClientCookie, reg *services.WorkspaceRegistry) gin.HandlerFunc {
	if cookie.Name == "" {
		cookie.Name = "tt_client"
	}
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 30 * 24 * time.Hour
	}

	return func(c *gin.Context) {
		clientID, err := c.Cookie(cookie.Name)
		if err != nil || uuid.Validate(clientID) != nil {
			clientID = uuid.NewString()
		}
		// refresh on every response so active clients keep their cookie
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, clientID, int(cookie.MaxAge.Seconds()), "/", "", cookie.Secure, true)

		w := reg.Get(c.Request.Context(), clientID)
		c.Set(KeyClientID, clientID)
		c.Set(KeyWorkspace, w)
		if u := w.Session.Current(); u != nil {
			c.Set(KeyUserID, u.ID)
		}
		c.Next()
	}
}
