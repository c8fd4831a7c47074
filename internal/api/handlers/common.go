package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/api/middleware"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireWorkspace(c *gin.Context) (*services.Workspace, bool) {
	if v, ok := c.Get(middleware.KeyWorkspace); ok {
		if w, ok := v.(*services.Workspace); ok && w != nil {
			return w, true
		}
	}

	writeError(c, utils.E(utils.CodeInternal, "Workspace", "client session missing", nil))
	return nil, false
}
