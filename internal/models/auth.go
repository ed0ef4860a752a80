package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of backend issued access tokens.
type JWTClaims struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request. Verified is
// set only when the token signature was checked against the shared secret.
type Principal struct {
	UserID   string
	Email    string
	Role     UserRole
	Token    string
	Verified bool
}
