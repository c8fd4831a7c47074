package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/api/handlers"
	"github.com/yoockh/texttalk/internal/api/middleware"
	"github.com/yoockh/texttalk/internal/services"
)

type Deps struct {
	Workspaces *services.WorkspaceRegistry
	Cookie     middleware.ClientCookie

	Auth    *handlers.AuthHandler
	Convert *handlers.ConvertHandler
	History *handlers.HistoryHandler
	View    *handlers.ViewHandler
	WS      *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	client := r.Group("/")
	client.Use(middleware.ClientSession(d.Cookie, d.Workspaces))

	client.GET("/state", d.Convert.State)
	client.POST("/auth/signin", d.Auth.SignIn)
	client.POST("/auth/signup", d.Auth.SignUp)
	client.POST("/auth/signout", d.Auth.SignOut)
	client.GET("/ws/notifications", d.WS.Notifications)

	// convert runs its own identity check so that an anonymous submit
	// still produces the NotAuthenticated notification
	client.POST("/convert", d.Convert.Convert)

	// signed-in only
	user := client.Group("/")
	user.Use(middleware.RequireIdentity())
	user.POST("/view", d.View.Select)
	user.GET("/history", d.History.List)
	user.DELETE("/history/:id", d.History.Delete)
}
