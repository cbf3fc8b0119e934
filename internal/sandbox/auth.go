package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// TokenType is reported alongside every issued access token.
const TokenType = "bearer"

var (
	errIncorrectLogin   = fail(appErrors.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect email or password")
	errInactiveUser     = fail(appErrors.ErrInactiveAccount, http.StatusUnauthorized, "User account is inactive")
	errCouldNotValidate = fail(appErrors.ErrUnauthorized, http.StatusUnauthorized, "Could not validate credentials")
)

func newUUID() string {
	return uuid.NewString()
}

// Login authenticates a user and returns an access token with the identity.
func (b *Backend) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := b.validator.StructCtx(ctx, req); err != nil {
		return nil, b.invalid(err)
	}

	b.mu.RLock()
	acc, ok := b.accountByEmail(req.Email)
	b.mu.RUnlock()

	if !ok {
		return nil, errIncorrectLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(req.Password)); err != nil {
		return nil, errIncorrectLogin
	}
	if !acc.user.IsActive {
		return nil, errInactiveUser
	}

	token, _, err := b.generateAccessToken(acc.user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	b.logger.Info("user logged in", zap.String("user_id", acc.user.ID), zap.String("role", string(acc.user.Role)))
	return &models.LoginResponse{AccessToken: token, TokenType: TokenType, User: acc.user}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (b *Backend) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(b.config.JWTSecret), nil
	}, jwt.WithIssuer(b.config.Issuer), jwt.WithTimeFunc(b.now))
	if err != nil {
		wrapped := appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid token")
		wrapped.Detail = errCouldNotValidate.Detail
		return nil, wrapped
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, errCouldNotValidate
	}

	return claims, nil
}

// Authenticate resolves a bearer token to the stored, active user.
func (b *Backend) Authenticate(tokenString string) (*models.User, error) {
	claims, err := b.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	acc, ok := b.accountByID(claims.UserID)
	b.mu.RUnlock()

	if !ok {
		return nil, errCouldNotValidate
	}
	if !acc.user.IsActive {
		return nil, errInactiveUser
	}
	user := acc.user
	return &user, nil
}

func (b *Backend) generateAccessToken(user models.User) (string, time.Time, error) {
	issuedAt := b.now()
	expiresAt := issuedAt.Add(b.config.JWTExpiration)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    b.config.Issuer,
			Subject:   user.ID,
			ID:        b.newID(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(b.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// accountByEmail expects b.mu to be held.
func (b *Backend) accountByEmail(email string) (account, bool) {
	email = strings.TrimSpace(email)
	for _, acc := range b.users {
		if strings.EqualFold(acc.user.Email, email) {
			return *acc, true
		}
	}
	return account{}, false
}

// accountByID expects b.mu to be held.
func (b *Backend) accountByID(id string) (account, bool) {
	for _, acc := range b.users {
		if acc.user.ID == id {
			return *acc, true
		}
	}
	return account{}, false
}
