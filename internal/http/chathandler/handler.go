package chathandler

import (
	"errors"
	"net/http"

	"omnicom/internal/services/chat"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc chat.IChatService
}

func New(svc chat.IChatService) *Handler { return &Handler{svc: svc} }

// Register wires the chat REST surface; authed guards the routes that
// need a verified identity.
func (h *Handler) Register(r gin.IRoutes, authed gin.HandlerFunc) {
	r.GET("/api/channels", h.listChannels)
	r.POST("/api/channels", authed, h.createChannel)
	r.GET("/api/channels/:id/messages", authed, h.listMessages)
	r.POST("/api/message", authed, h.postMessage)
}

func (h *Handler) listChannels(c *gin.Context) {
	out, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) createChannel(c *gin.Context) {
	var body CreateChannelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	dto, err := h.svc.CreateChannel(c.Request.Context(), body.Name, body.Topic)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) listMessages(c *gin.Context) {
	var q ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListMessages(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) postMessage(c *gin.Context) {
	var body PostMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	id, err := h.svc.SaveMessage(c.Request.Context(), c.GetString("userID"), body.ChannelID, body.Message)
	if errors.Is(err, chat.ErrChannelNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, PostMessageResponse{Ok: true, ID: id})
}
