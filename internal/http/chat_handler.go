package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neuratalk/internal/domain"
	"neuratalk/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de chats y mensajes.
type ChatHandler struct {
	logger  *zap.Logger
	store   *service.SessionStore
	chatSvc *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(
	logger *zap.Logger,
	store *service.SessionStore,
	chatSvc *service.ChatService,
) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		store:   store,
		chatSvc: chatSvc,
	}
}

// CreateChat maneja POST /chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	id := h.store.CreateChat()
	chat, _ := h.store.Chat(id)
	c.JSON(http.StatusCreated, gin.H{"chat": chat})
}

// SelectChat maneja POST /chats/:id/select.
func (h *ChatHandler) SelectChat(c *gin.Context) {
	if err := h.store.SelectChat(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_chat_id": c.Param("id")})
}

// RenameChat maneja PATCH /chats/:id. Titulos vacios se ignoran.
func (h *ChatHandler) RenameChat(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rename request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id := c.Param("id")
	if _, ok := h.store.Chat(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	h.store.RenameChat(id, req.Title)
	chat, _ := h.store.Chat(id)
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// DeleteChat maneja DELETE /chats/:id. Borrar un id inexistente no es error.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	h.store.DeleteChat(c.Param("id"))
	activeID := h.store.Bootstrap()
	c.JSON(http.StatusOK, gin.H{"active_chat_id": activeID})
}

// SetModel maneja PUT /chats/:id/model.
func (h *ChatHandler) SetModel(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set model request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.store.SetModel(c.Param("id"), req.Model); err != nil {
		h.writeStoreError(c, err)
		return
	}
	chat, _ := h.store.Chat(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// SetSystemMessage maneja PUT /chats/:id/system-message.
func (h *ChatHandler) SetSystemMessage(c *gin.Context) {
	var req struct {
		SystemMessage string `json:"system_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid system message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id := c.Param("id")
	chat, ok := h.store.Chat(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if domain.IsRestrictedModel(chat.Model) {
		c.JSON(http.StatusConflict, gin.H{"error": "system messages are not supported for this model"})
		return
	}
	if err := h.store.SetSystemMessage(id, req.SystemMessage); err != nil {
		h.writeStoreError(c, err)
		return
	}
	chat, _ = h.store.Chat(id)
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// PostMessage maneja POST /messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// Un envio en curso no se aborta si el cliente se desconecta; el timeout del cliente LLM lo acota.
	res, err := h.chatSvc.SendMessage(context.WithoutCancel(c.Request.Context()), req.Content)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, res)
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrNoActiveChat):
		// Entrada invalida: se ignora sin error visible.
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrCredentialMissing):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credential required"})
	case errors.Is(err, service.ErrSendInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a message is already being sent"})
	default:
		h.logger.Error("send message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
	}
}

func (h *ChatHandler) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	case errors.Is(err, service.ErrUnknownModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model"})
	default:
		h.logger.Error("store update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update chat"})
	}
}
