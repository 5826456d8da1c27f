package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gitlens/backend/internal/repository"
	"github.com/gitlens/backend/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.chatService.Chat(c.Request.Context(), id, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "repository not found"})
		case errors.Is(err, service.ErrAnalysisRequired):
			c.JSON(http.StatusConflict, gin.H{"error": "repository analysis has not completed yet"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *ChatHandler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	messages, err := h.chatService.History(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Export 导出对话纯文本
func (h *ChatHandler) Export(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	text, err := h.chatService.Export(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=chat_history.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *ChatHandler) Clear(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.chatService.Clear(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chat history cleared"})
}

func (h *ChatHandler) Suggestions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	text, err := h.chatService.Suggestions(id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "repository not found"})
		case errors.Is(err, service.ErrAnalysisRequired):
			c.JSON(http.StatusConflict, gin.H{"error": "repository analysis has not completed yet"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": text})
}
