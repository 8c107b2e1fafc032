package api

import (
	"github.com/teranga-pos/payments/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getContextUint(c *gin.Context, key, missingMsg string) (uint, bool) {
	value, ok := c.Get(key)
	if !ok {
		respondError(c, response.CodeUnauthorized, missingMsg, nil)
		return 0, false
	}
	id, ok := value.(uint)
	if !ok || id == 0 {
		respondError(c, response.CodeUnauthorized, missingMsg, nil)
		return 0, false
	}
	return id, true
}

func getTenantID(c *gin.Context) (uint, bool) {
	return getContextUint(c, "tenant_id", "tenant identity missing from token")
}

func getCashierID(c *gin.Context) (uint, bool) {
	return getContextUint(c, "cashier_id", "cashier identity missing from token")
}
