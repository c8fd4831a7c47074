package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/utils"
)

type HistoryHandler struct{}

func NewHistoryHandler() *HistoryHandler { return &HistoryHandler{} }

// List reloads the signed-in user's history. A store failure degrades to an
// empty list rather than an error.
func (h *HistoryHandler) List(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}
	user := w.Session.Current()
	if user == nil {
		writeError(c, utils.E(utils.CodeUnauthorized, "HistoryHandler.List", "unauthorized", utils.ErrNotAuthenticated))
		return
	}

	if err := w.History.Load(c.Request.Context(), user.ID); err != nil && !errors.Is(err, utils.ErrStoreQuery) {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": w.History.Records(),
	})
}

// Delete removes the record from the cached list at once; the store delete
// finishes in the background.
func (h *HistoryHandler) Delete(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "HistoryHandler.Delete", "missing id", nil))
		return
	}

	_ = w.History.Delete(c.Request.Context(), id)

	c.JSON(http.StatusAccepted, gin.H{
		"deleted": id,
		"records": w.History.Records(),
	})
}
