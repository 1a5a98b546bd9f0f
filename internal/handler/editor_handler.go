package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/history"
	"github.com/yourorg/strategy-sync/internal/model"
	"github.com/yourorg/strategy-sync/internal/service"
	"github.com/yourorg/strategy-sync/internal/utils"
)

// EditorHandler handles synchronization, validation and session HTTP
// requests.
type EditorHandler struct {
	editorService *service.EditorService
	logger        *zap.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(editorService *service.EditorService, logger *zap.Logger) *EditorHandler {
	return &EditorHandler{editorService: editorService, logger: logger}
}

// SyncToTextRequest is the payload for POST /sync/to-text
type SyncToTextRequest struct {
	State    *model.FormState `json:"state" binding:"required"`
	Comments []model.Comment  `json:"comments"`
}

// SynchronizeToText handles rendering form state to DSL text
// POST /api/v1/sync/to-text
func (h *EditorHandler) SynchronizeToText(c *gin.Context) {
	var req SyncToTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	text, err := h.editorService.SynchronizeToText(c.Request.Context(), req.State, req.Comments)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, gin.H{"text": text})
}

// SyncToStateRequest is the payload for POST /sync/to-state
type SyncToStateRequest struct {
	Text         string `json:"text" binding:"required"`
	PriorVersion int    `json:"prior_version"`
}

// SynchronizeToState handles parsing DSL text into form state
// POST /api/v1/sync/to-state
func (h *EditorHandler) SynchronizeToState(c *gin.Context) {
	var req SyncToStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	state, result, err := h.editorService.SynchronizeToState(c.Request.Context(), req.Text, req.PriorVersion)
	if err != nil {
		h.logger.Error("Synchronize to state failed", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Synchronization failed")
		return
	}
	if state == nil {
		// Invalid document: surface the findings, not a server error.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"validation": result})
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, gin.H{"state": state, "validation": result})
}

// ValidateRequest is the payload for POST /validate
type ValidateRequest struct {
	Text string `json:"text" binding:"required"`
}

// Validate handles standalone validation of DSL text
// POST /api/v1/validate
func (h *EditorHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	result := h.editorService.Validate(c.Request.Context(), req.Text)
	utils.SendSuccessResponse(c, http.StatusOK, result)
}

// StartSessionRequest is the payload for POST /sessions
type StartSessionRequest struct {
	StrategyID int `json:"strategy_id" binding:"required"`
}

// StartSession opens an editing session
// POST /api/v1/sessions
func (h *EditorHandler) StartSession(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		utils.SendErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	sessionID := h.editorService.StartSession(req.StrategyID, userID.(int))
	utils.SendSuccessResponse(c, http.StatusCreated, gin.H{"session_id": sessionID})
}

// ResumeSession restores a session from its durable snapshot
// POST /api/v1/sessions/:id/resume
func (h *EditorHandler) ResumeSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.editorService.ResumeSession(c.Request.Context(), sessionID); err != nil {
		h.respondHistoryError(c, err)
		return
	}
	summary, err := h.editorService.SessionSummary(sessionID)
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, summary)
}

// EndSession closes an editing session
// DELETE /api/v1/sessions/:id
func (h *EditorHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.editorService.EndSession(c.Request.Context(), sessionID); err != nil {
		h.respondHistoryError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSession returns the session summary
// GET /api/v1/sessions/:id
func (h *EditorHandler) GetSession(c *gin.Context) {
	summary, err := h.editorService.SessionSummary(c.Param("id"))
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, summary)
}

// PushChange records a change event on a session
// POST /api/v1/sessions/:id/changes
func (h *EditorHandler) PushChange(c *gin.Context) {
	var event model.ChangeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid change event: "+err.Error())
		return
	}
	event.SessionID = c.Param("id")
	if userID, exists := c.Get("userID"); exists {
		event.UserID = userID.(int)
	}

	if err := h.editorService.PushChange(event.SessionID, event); err != nil {
		h.respondHistoryError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Undo pops the latest change event
// POST /api/v1/sessions/:id/undo
func (h *EditorHandler) Undo(c *gin.Context) {
	event, err := h.editorService.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, event)
}

// Redo re-applies the most recently undone event
// POST /api/v1/sessions/:id/redo
func (h *EditorHandler) Redo(c *gin.Context) {
	event, err := h.editorService.Redo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, event)
}

func (h *EditorHandler) respondHistoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, history.ErrSessionNotFound):
		utils.SendErrorResponse(c, http.StatusNotFound, "Session not found")
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		utils.SendErrorResponse(c, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Session operation failed", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Session operation failed")
	}
}
