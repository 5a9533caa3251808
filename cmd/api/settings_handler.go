package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// minTokenMaxAge is the smallest max age accepted at runtime.
const minTokenMaxAge = 24 * time.Hour

// RuntimeConfig holds runtime-configurable settings
type RuntimeConfig struct {
	TokenMaxAge time.Duration
}

var (
	runtimeConfig     RuntimeConfig
	runtimeConfigLock sync.RWMutex
)

// InitRuntimeConfig initializes runtime config from static config
func InitRuntimeConfig(tokenMaxAge time.Duration) {
	runtimeConfigLock.Lock()
	defer runtimeConfigLock.Unlock()
	runtimeConfig = RuntimeConfig{TokenMaxAge: tokenMaxAge}
}

// GetRuntimeTokenMaxAge returns the age after which the reaper clears a
// push token. The reaper reads it on every sweep.
func GetRuntimeTokenMaxAge() time.Duration {
	runtimeConfigLock.RLock()
	defer runtimeConfigLock.RUnlock()
	return runtimeConfig.TokenMaxAge
}

// UpdateReaperSettingsRequest represents the request body for updating reaper settings
type UpdateReaperSettingsRequest struct {
	MaxTokenAge string `json:"max_token_age" binding:"required"`
}

func reaperSettings(maxAge time.Duration) gin.H {
	return gin.H{
		"max_token_age":      maxAge.String(),
		"max_token_age_days": maxAge.Hours() / 24,
	}
}

// GetReaperSettings returns the current token reaper configuration
// GET /api/settings/reaper
func GetReaperSettings(c *gin.Context) {
	c.JSON(http.StatusOK, reaperSettings(GetRuntimeTokenMaxAge()))
}

// UpdateReaperSettings changes the token max age at runtime. The new value
// applies from the next sweep.
// PUT /api/settings/reaper
func UpdateReaperSettings(c *gin.Context) {
	var req UpdateReaperSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maxAge, err := time.ParseDuration(req.MaxTokenAge)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_token_age must be a duration such as 2160h"})
		return
	}
	if maxAge < minTokenMaxAge {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_token_age must be at least 24h"})
		return
	}

	runtimeConfigLock.Lock()
	runtimeConfig.TokenMaxAge = maxAge
	runtimeConfigLock.Unlock()

	body := reaperSettings(maxAge)
	body["message"] = "Reaper settings updated successfully"
	c.JSON(http.StatusOK, body)
}
