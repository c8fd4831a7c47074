package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/utils"
)

type ConvertHandler struct{}

func NewConvertHandler() *ConvertHandler { return &ConvertHandler{} }

type ConvertRequest struct {
	Text string `json:"text"`
}

func (h *ConvertHandler) Convert(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConvertHandler.Convert", "invalid request body", err))
		return
	}

	res, err := w.Converter.Submit(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type StateResponse struct {
	View           services.View            `json:"view"`
	State          services.ConversionState `json:"state"`
	InFlight       bool                     `json:"in_flight"`
	MaxChars       int                      `json:"max_chars"`
	User           *models.User             `json:"user"`
	Result         *models.ConversionResult `json:"result"`
	Notification   *models.Notification     `json:"notification"`
	HistoryLoading bool                     `json:"history_loading"`
}

// State is what the page renders from.
func (h *ConvertHandler) State(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, StateResponse{
		View:           w.Views.Current(),
		State:          w.Converter.State(),
		InFlight:       w.Converter.InFlight(),
		MaxChars:       services.MaxChars,
		User:           w.Session.Current(),
		Result:         w.Converter.Result(),
		Notification:   w.Notifications.Current(),
		HistoryLoading: w.History.Loading(),
	})
}
