package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emifrog/speechtotalk/internal/services"
	"github.com/emifrog/speechtotalk/internal/translator"
)

// TranslateHandler exposes the translation pipeline over HTTP.
type TranslateHandler struct {
	orchestrator *services.Orchestrator
	detector     translator.Detector
}

func NewTranslateHandler(orchestrator *services.Orchestrator, detector translator.Detector) *TranslateHandler {
	return &TranslateHandler{orchestrator: orchestrator, detector: detector}
}

type translateRequest struct {
	Text              string `json:"text" binding:"required"`
	SourceLang        string `json:"source_lang" binding:"required"`
	TargetLang        string `json:"target_lang" binding:"required"`
	IsEmergencyPhrase bool   `json:"is_emergency_phrase"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	Source         string `json:"source"`
	Approximate    bool   `json:"approximate"`
	Error          string `json:"error,omitempty"`
}

// Translate runs the pipeline for one phrase
// POST /api/translate
func (h *TranslateHandler) Translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.orchestrator.Translate(c.Request.Context(), req.Text, req.SourceLang, req.TargetLang, req.IsEmergencyPhrase)

	resp := translateResponse{
		TranslatedText: result.Text,
		Source:         string(result.Source),
		Approximate:    result.Approximate,
	}
	if result.Err != nil {
		// Translation failures are part of the contract, not HTTP errors:
		// the client gets 200 with the bracket-wrapped message, same as the
		// on-device pipeline.
		resp.TranslatedText = translator.FormatUserError(result.Err)
		resp.Error = translator.UserMessage(translator.ClassOf(result.Err))
	}
	if result.Approximate {
		resp.TranslatedText = result.Text + services.ApproximateSuffix
	}

	c.JSON(http.StatusOK, resp)
}

type detectRequest struct {
	Text string `json:"text" binding:"required"`
}

// Detect identifies the language of a phrase, for the app's auto-detect mode
// POST /api/detect
func (h *TranslateHandler) Detect(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detection, err := h.detector.DetectLanguage(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": translator.UserMessage(translator.ClassOf(err))})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"language_code": detection.LanguageCode,
		"confidence":    detection.Confidence,
	})
}

// DownloadLanguage pre-warms the cache for offline use of one language
// POST /api/languages/:code/download
func (h *TranslateHandler) DownloadLanguage(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language code is required"})
		return
	}

	if !h.orchestrator.DownloadLanguageForOffline(c.Request.Context(), code) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "download failed",
			"hint":  "offline downloads require connectivity",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "language cached for offline use", "code": code})
}
