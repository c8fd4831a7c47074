package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// RequireIdentity rejects requests from clients with no signed-in user.
// Must run after ClientSession.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(KeyWorkspace)
		w, ok := v.(*services.Workspace)
		if !ok || w == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "client session missing",
			})
			return
		}
		if w.Session.Current() == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: services.MsgNotAuthenticated,
			})
			return
		}
		c.Next()
	}
}
