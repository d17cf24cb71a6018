// Package middleware contains Gin middleware functions.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyAPIKey is where the authenticated key is stored on the gin context.
const ContextKeyAPIKey = "api_key"

// APIKeyAuth returns middleware that validates API keys sent in the X-API-Key
// header or the api_key query param (for <img src="...?api_key=xxx">).
// With no keys configured the API is open and every request passes.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	keySet := toSet(validKeys)

	return func(c *gin.Context) {
		if len(keySet) == 0 {
			c.Next()
			return
		}

		key := requestKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if _, ok := keySet[key]; !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

// AdminKeyAuth returns middleware that validates admin API keys. Unlike
// APIKeyAuth it never opens up: no admin keys means no admin access.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	keySet := toSet(adminKeys)

	return func(c *gin.Context) {
		key := requestKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing admin API key",
			})
			return
		}

		if _, ok := keySet[key]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid admin API key",
			})
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

func requestKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
