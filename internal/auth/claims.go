package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for this service.
// AgencyID scopes every request; only super_admin tokens may omit it.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	AgencyID  string    `json:"agency_id,omitempty"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
