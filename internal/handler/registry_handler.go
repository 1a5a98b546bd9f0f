package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/registry"
	"github.com/yourorg/strategy-sync/internal/utils"
)

// RegistryHandler serves the indicator-type registry to form UIs.
type RegistryHandler struct {
	logger *zap.Logger
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{logger: logger}
}

// GetAllTypes lists all registered indicator types
// GET /api/v1/indicator-types
func (h *RegistryHandler) GetAllTypes(c *gin.Context) {
	utils.SendSuccessResponse(c, http.StatusOK, gin.H{"indicator_types": registry.All()})
}

// GetType returns one indicator-type definition
// GET /api/v1/indicator-types/:type
func (h *RegistryHandler) GetType(c *gin.Context) {
	def, err := registry.Get(c.Param("type"))
	if err != nil {
		utils.SendErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, def)
}
