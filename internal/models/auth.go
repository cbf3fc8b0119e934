package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=100"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// SessionSnapshot is the observable state of the session manager.
type SessionSnapshot struct {
	Token    string
	Identity *User
	Loading  bool
}

// Authenticated is true only once both token and identity are present.
func (s SessionSnapshot) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}

// JWTClaims represents the JWT payload issued by the sandbox API.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
