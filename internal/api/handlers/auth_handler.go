package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/utils"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler { return &AuthHandler{} }

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignIn(c *gin.Context) { h.authenticate(c, false) }

func (h *AuthHandler) SignUp(c *gin.Context) { h.authenticate(c, true) }

func (h *AuthHandler) authenticate(c *gin.Context, signup bool) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AuthHandler.authenticate", "email and password are required", err))
		return
	}

	signIn := w.Session.SignIn
	if signup {
		signIn = w.Session.SignUp
	}
	user, err := signIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// provider messages are shown verbatim
		w.Notifications.Error(utils.Message(err, "Authentication failed."))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
		"view": w.Views.Current(),
	})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	w.Session.SignOut(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"view": w.Views.Current()})
}
