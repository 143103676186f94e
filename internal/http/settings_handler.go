package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neuratalk/internal/domain"
	"neuratalk/internal/service"
)

// SettingsHandler expone estado global, toggles y credencial.
type SettingsHandler struct {
	logger  *zap.Logger
	store   *service.SessionStore
	chatSvc *service.ChatService
}

func NewSettingsHandler(logger *zap.Logger, store *service.SessionStore, chatSvc *service.ChatService) *SettingsHandler {
	return &SettingsHandler{
		logger:  logger,
		store:   store,
		chatSvc: chatSvc,
	}
}

// ListModels maneja GET /models.
func (h *SettingsHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  domain.Models(),
		"default": domain.DefaultModelID,
	})
}

// GetState maneja GET /state.
func (h *SettingsHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, buildStateView(h.store, h.chatSvc))
}

// UpdateSettings maneja PUT /settings; los campos ausentes no cambian.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		IncludeHistory       *bool `json:"include_history"`
		IncludeSystemMessage *bool `json:"include_system_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid settings request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.IncludeHistory != nil {
		h.store.SetIncludeHistory(*req.IncludeHistory)
	}
	if req.IncludeSystemMessage != nil {
		h.store.SetIncludeSystemMessage(*req.IncludeSystemMessage)
	}
	c.JSON(http.StatusOK, gin.H{
		"include_history":        h.store.IncludeHistory(),
		"include_system_message": h.store.IncludeSystemMessage(),
	})
}

// SetCredential maneja PUT /credential. La key nunca se devuelve ni se loguea.
func (h *SettingsHandler) SetCredential(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.store.SetCredential(req.APIKey)
	c.JSON(http.StatusOK, gin.H{"credential_required": h.store.CredentialRequired()})
}

// ClearCredential maneja DELETE /credential.
func (h *SettingsHandler) ClearCredential(c *gin.Context) {
	h.store.ClearCredential(service.ClearReasonUser)
	c.JSON(http.StatusOK, gin.H{"credential_required": h.store.CredentialRequired()})
}

// Unload maneja POST /unload, que la vista envia al cerrarse la pestaña.
func (h *SettingsHandler) Unload(c *gin.Context) {
	h.store.ClearCredential(service.ClearReasonUnload)
	c.Status(http.StatusNoContent)
}

// ClearAll maneja DELETE /data: borra chats y ajustes y vuelve a sembrar un chat.
func (h *SettingsHandler) ClearAll(c *gin.Context) {
	h.store.ClearAll()
	h.store.Bootstrap()
	h.logger.Info("all data cleared")
	c.JSON(http.StatusOK, buildStateView(h.store, h.chatSvc))
}
