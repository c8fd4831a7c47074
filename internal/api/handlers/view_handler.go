package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/utils"
)

type ViewHandler struct{}

func NewViewHandler() *ViewHandler { return &ViewHandler{} }

type SelectViewRequest struct {
	View services.View `json:"view" binding:"required"`
}

func (h *ViewHandler) Select(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req SelectViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ViewHandler.Select", "invalid request body", err))
		return
	}

	switch req.View {
	case services.ViewHistory:
		w.Views.ShowHistory()
	case services.ViewConverter:
		w.Views.ShowConverter()
	default:
		writeError(c, utils.E(utils.CodeInvalidArgument, "ViewHandler.Select", "view must be history or converter", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"view": w.Views.Current()})
}
