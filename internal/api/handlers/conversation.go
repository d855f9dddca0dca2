package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emifrog/speechtotalk/internal/conversation"
)

// ConversationHandler exposes the turn-taking engine.
type ConversationHandler struct {
	engine *conversation.Engine
}

func NewConversationHandler(engine *conversation.Engine) *ConversationHandler {
	return &ConversationHandler{engine: engine}
}

type initializeRequest struct {
	Languages []string `json:"languages"`
}

// Initialize seeds a conversation and activates it
// POST /api/conversation
func (h *ConversationHandler) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participants := h.engine.Initialize(req.Languages)
	h.engine.SetActive(true)
	c.JSON(http.StatusCreated, gin.H{"participants": participants})
}

// Deactivate ends the conversation session
// DELETE /api/conversation
func (h *ConversationHandler) Deactivate(c *gin.Context) {
	h.engine.SetActive(false)
	c.JSON(http.StatusOK, gin.H{"active": false})
}

type addParticipantRequest struct {
	PreferredLanguage string `json:"preferred_language" binding:"required"`
}

// AddParticipant appends a speaker
// POST /api/conversation/participants
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := h.engine.AddParticipant(req.PreferredLanguage)
	c.JSON(http.StatusCreated, p)
}

// RemoveParticipant drops a speaker by id
// DELETE /api/conversation/participants/:id
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	err := h.engine.RemoveParticipant(c.Param("id"))
	switch {
	case errors.Is(err, conversation.ErrMinParticipants):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, conversation.ErrUnknownParticipant):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"participants": h.engine.Participants()})
	}
}

// GetParticipants lists the roster and the active speaker
// GET /api/conversation/participants
func (h *ConversationHandler) GetParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"participants": h.engine.Participants(),
		"current":      h.engine.Current(),
		"active":       h.engine.IsActive(),
	})
}

// NextParticipant advances the turn
// POST /api/conversation/next
func (h *ConversationHandler) NextParticipant(c *gin.Context) {
	p := h.engine.AdvanceTurn()
	if p == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation has no participants"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type utteranceRequest struct {
	Text string `json:"text" binding:"required"`
}

// ProcessTextInput records an utterance for the active speaker
// POST /api/conversation/utterances
func (h *ConversationHandler) ProcessTextInput(c *gin.Context) {
	var req utteranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn, err := h.engine.RecordUtterance(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, conversation.ErrInactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, conversation.ErrUnreliableDetection):
		// 202 tells the client the utterance was seen but not recorded.
		c.JSON(http.StatusAccepted, gin.H{"recorded": false, "reason": "unreliable language detection"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, turn)
	}
}

// GetHistory returns the transcript
// GET /api/conversation/history
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"turns": h.engine.History()})
}

// ClearHistory empties the transcript
// DELETE /api/conversation/history
func (h *ConversationHandler) ClearHistory(c *gin.Context) {
	h.engine.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
}
