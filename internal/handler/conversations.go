package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pickeld/lucy/internal/conversation"
	apperrors "github.com/pickeld/lucy/internal/errors"
)

// ConversationsHandler serves CRUD over the retrieval chat history
// conversation.Store tracks.
type ConversationsHandler struct {
	store *conversation.Store
}

// NewConversationsHandler creates a new ConversationsHandler.
func NewConversationsHandler(store *conversation.Store) *ConversationsHandler {
	return &ConversationsHandler{store: store}
}

func conversationErr(action string, err error) *apperrors.AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError("conversation not found")
	}
	return apperrors.Wrap(apperrors.CodeInternal, action, err)
}

// CreateConversationRequest is the body of a conversation creation call.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// Create godoc
// @Summary      Start a conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        request  body      CreateConversationRequest  true  "title"
// @Success      200      {object}  map[string]interface{}
// @Router       /conversations [post]
func (h *ConversationsHandler) Create(c *gin.Context) {
	var req CreateConversationRequest
	_ = c.ShouldBindJSON(&req)

	conv, err := h.store.Create(c.Request.Context(), uuid.NewString(), req.Title)
	if err != nil {
		c.Error(conversationErr("creating conversation", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conv})
}

// List godoc
// @Summary      List conversations
// @Tags         conversations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /conversations [get]
func (h *ConversationsHandler) List(c *gin.Context) {
	convs, err := h.store.List(c.Request.Context())
	if err != nil {
		c.Error(conversationErr("listing conversations", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": convs})
}

// Get godoc
// @Summary      Get a conversation and its history
// @Tags         conversations
// @Produce      json
// @Param        id   path      string  true  "conversation id"
// @Success      200  {object}  map[string]interface{}
// @Router       /conversations/{id} [get]
func (h *ConversationsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	conv, err := h.store.Get(ctx, id)
	if err != nil {
		c.Error(conversationErr("fetching conversation", err))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	history, err := h.store.History(ctx, id, limit)
	if err != nil {
		c.Error(conversationErr("fetching conversation history", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"conversation": conv,
		"messages":     history,
	}})
}

// RenameConversationRequest is the body of a conversation rename call.
type RenameConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

// Rename godoc
// @Summary      Rename a conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "conversation id"
// @Param        request  body      RenameConversationRequest  true  "new title"
// @Success      200      {object}  map[string]interface{}
// @Router       /conversations/{id} [patch]
func (h *ConversationsHandler) Rename(c *gin.Context) {
	id := c.Param("id")

	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError(err.Error()))
		return
	}

	if err := h.store.Rename(c.Request.Context(), id, req.Title); err != nil {
		c.Error(conversationErr("renaming conversation", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete godoc
// @Summary      Delete a conversation
// @Tags         conversations
// @Produce      json
// @Param        id   path      string  true  "conversation id"
// @Success      200  {object}  map[string]interface{}
// @Router       /conversations/{id} [delete]
func (h *ConversationsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		c.Error(conversationErr("deleting conversation", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
