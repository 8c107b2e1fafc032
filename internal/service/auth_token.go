package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims identifies the terminal calling the API: the tenant it belongs
// to and the cashier logged into it.
type TokenClaims struct {
	TenantID  uint   `json:"tenant_id"`
	CashierID uint   `json:"cashier_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a terminal token. The POS backend calls this at cashier
// login; tests use it to mint fixtures.
func IssueToken(secretKey string, tenantID, cashierID uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		TenantID:  tenantID,
		CashierID: cashierID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
