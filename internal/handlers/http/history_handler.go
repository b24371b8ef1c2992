package http

import (
	"net/http"
	"strconv"

	"echolink/internal/core/domain"
	"echolink/internal/core/ports"
	"echolink/pkg/errors"
	"echolink/pkg/validation"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves persisted conversation history over REST. Live
// delivery stays on the websocket; these routes exist for catch-up
// after reconnect and for tooling.
type HistoryHandler struct {
	messages ports.MessageStore
	rooms    ports.RoomStore

	defaultLimit int
	maxLimit     int
}

func NewHistoryHandler(messages ports.MessageStore, rooms ports.RoomStore, defaultLimit, maxLimit int) *HistoryHandler {
	return &HistoryHandler{
		messages:     messages,
		rooms:        rooms,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *HistoryHandler) SetupRoutes(router *gin.Engine, authRequired gin.HandlerFunc) {
	api := router.Group("/api/v1")
	api.Use(authRequired)
	{
		api.GET("/messages/direct/:peerID", h.GetDirectMessages)
		api.GET("/rooms/:roomID/messages", h.GetRoomMessages)
		api.GET("/rooms/:roomID/members", h.GetRoomMembers)
	}
}

func (h *HistoryHandler) GetDirectMessages(c *gin.Context) {
	peerID := c.Param("peerID")
	if err := validation.ValidatePeerID(peerID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	other := c.Query("with")
	if err := validation.ValidatePeerID(other); err != nil {
		c.Error(errors.NewInvalidInputError("with: " + err.Error()))
		return
	}

	limit, err := h.parseLimit(c)
	if err != nil {
		c.Error(err)
		return
	}

	msgs, err := h.messages.DirectMessages(c.Request.Context(), domain.PeerID(peerID), domain.PeerID(other), limit)
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to load messages", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (h *HistoryHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("roomID")
	if err := validation.ValidateRoomID(roomID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	limit, err := h.parseLimit(c)
	if err != nil {
		c.Error(err)
		return
	}

	msgs, err := h.messages.RoomMessages(c.Request.Context(), domain.RoomID(roomID), limit)
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to load messages", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId":  roomID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// GetRoomMembers returns the persisted roster, which may include users
// that are currently offline. The live member list travels only over
// the websocket.
func (h *HistoryHandler) GetRoomMembers(c *gin.Context) {
	roomID := c.Param("roomID")
	if err := validation.ValidateRoomID(roomID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	members, err := h.rooms.RoomMembers(c.Request.Context(), domain.RoomID(roomID))
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to load members", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId": roomID,
		"members": members,
		"count":   len(members),
	})
}

func (h *HistoryHandler) parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return h.defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.NewInvalidInputError("limit must be a positive integer")
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit, nil
}
