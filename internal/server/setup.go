package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyperdeck/bridge/config"
)

// SetupHandlers handles first-run setup and the persisted UI
// preferences document.
type SetupHandlers struct {
	cfg   *config.Config
	store *config.SettingsStore
}

// NewSetupHandlers creates setup handlers
func NewSetupHandlers(cfg *config.Config, store *config.SettingsStore) *SetupHandlers {
	return &SetupHandlers{cfg: cfg, store: store}
}

// GenerateKey generates a new API key
func (h *SetupHandlers) GenerateKey(c *gin.Context) {
	apiKey, err := config.GenerateAPIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate API key: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_key": apiKey})
}

// SaveKey persists an API key to the env file
func (h *SetupHandlers) SaveKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}

	if err := h.cfg.SaveAPIKey(req.APIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "saved",
		"message": "restart the bridge to enable authentication",
	})
}

// GetStatus returns non-secret daemon configuration
func (h *SetupHandlers) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"port":               h.cfg.Port,
		"host":               h.cfg.Host,
		"allowed_origins":    h.cfg.AllowedOrigins,
		"rate_limit_rps":     h.cfg.RateLimitRPS,
		"powershell_bin":     h.cfg.PowerShellBin,
		"policy_file":        h.cfg.PolicyFile,
		"settings_file":      h.cfg.SettingsFile,
		"log_level":          h.cfg.LogLevel,
		"setup_mode":         h.cfg.SetupMode,
		"api_key_configured": h.cfg.APIKey != "",
	})
}

// GetSettings returns the persisted UI preferences
func (h *SetupHandlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Get())
}

// UpdateSettings replaces the persisted UI preferences
func (h *SetupHandlers) UpdateSettings(c *gin.Context) {
	var settings config.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings document"})
		return
	}

	if err := h.store.Save(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.store.Get())
}
