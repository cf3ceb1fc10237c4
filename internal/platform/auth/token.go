package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs access and refresh token pairs.
type TokenIssuer struct {
	cfg        JWTConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func NewTokenIssuer(cfg JWTConfig, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue signs an access + refresh token pair for the given user.
func (i *TokenIssuer) Issue(userID, username, role string) (*TokenPair, error) {
	access, err := i.sign(userID, username, role, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(userID, username, role, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

// ParseRefresh validates a refresh token and returns its claims.
func (i *TokenIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	claims, err := ParseToken(tokenStr, i.cfg)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("refresh token required")
	}
	return claims, nil
}

func (i *TokenIssuer) sign(userID, username, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username:  username,
		Role:      role,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.cfg.SigningKey)
}
