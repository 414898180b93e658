package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/service"
)

// ChatHistoryHandler mantiene dependencias para los endpoints de /api/chat/history.
type ChatHistoryHandler struct {
	logger  *zap.Logger
	history *service.ChatHistoryService
}

// NewChatHistoryHandler crea una instancia de ChatHistoryHandler.
func NewChatHistoryHandler(logger *zap.Logger, history *service.ChatHistoryService) *ChatHistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHistoryHandler{logger: logger, history: history}
}

// Sin tags de binding: la falta de campos la reporta el servicio con su propio mensaje.
type conversationRequest struct {
	Title    string               `json:"title"`
	Messages []domain.ChatMessage `json:"messages"`
}

func (r conversationRequest) input() service.ConversationInput {
	return service.ConversationInput{Title: r.Title, Messages: r.Messages}
}

// List maneja GET /api/chat/history.
func (h *ChatHistoryHandler) List(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	list, err := h.history.List(c.Request.Context(), identity.AccountID)
	if err != nil {
		writeError(c, h.logger, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get maneja GET /api/chat/history/:id.
func (h *ChatHistoryHandler) Get(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	conv, err := h.history.Get(c.Request.Context(), identity.AccountID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get conversation", err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Create maneja POST /api/chat/history.
func (h *ChatHistoryHandler) Create(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, "create conversation", err)
		return
	}
	conv, err := h.history.Create(c.Request.Context(), identity.AccountID, req.input())
	if err != nil {
		writeError(c, h.logger, "create conversation", err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Update maneja PUT /api/chat/history/:id.
func (h *ChatHistoryHandler) Update(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, "update conversation", err)
		return
	}
	if err := h.history.Update(c.Request.Context(), identity.AccountID, c.Param("id"), req.input()); err != nil {
		writeError(c, h.logger, "update conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated successfully"})
}

// Delete maneja DELETE /api/chat/history/:id.
func (h *ChatHistoryHandler) Delete(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), identity.AccountID, c.Param("id")); err != nil {
		writeError(c, h.logger, "delete conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

func (h *ChatHistoryHandler) identity(c *gin.Context) (service.Identity, bool) {
	identity, ok := GetIdentity(c)
	if !ok {
		writeError(c, h.logger, "chat history", domain.ErrUnauthenticated)
	}
	return identity, ok
}
