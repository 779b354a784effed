package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bosatsu/aws-twilio-fax/interfaces"
)

// APIKeyConfig holds the configuration for API key authentication
type APIKeyConfig struct {
	HeaderName  string
	ValidAPIKey string
}

// APIKeyMiddleware creates a middleware function to validate API keys
func APIKeyMiddleware(config APIKeyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(config.HeaderName))

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing API key",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(config.ValidAPIKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// WebhookKeyMiddleware authenticates provider webhook calls. The webhook URL
// carries an id and key pair in the query string; the expected key for each
// id lives in the parameter store under keyParamBase. Any failure, lookup
// errors included, produces the same opaque denial so callers cannot probe
// which ids exist.
func WebhookKeyMiddleware(params interfaces.ParameterStore, keyParamBase string) gin.HandlerFunc {
	deny := func(c *gin.Context) {
		c.JSON(http.StatusForbidden, gin.H{
			"message": "Missing Authentication Token",
		})
		c.Abort()
	}

	return func(c *gin.Context) {
		id := c.Query("id")
		key := c.Query("key")
		if id == "" || key == "" {
			deny(c)
			return
		}

		expected, err := params.GetParameter(c.Request.Context(), keyParamBase+"/"+id, true)
		if err != nil {
			deny(c)
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			deny(c)
			return
		}

		c.Next()
	}
}
