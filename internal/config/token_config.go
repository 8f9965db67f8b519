package config

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type TokenConfig interface {
	GetJWTSecret() string
	IsJWTSecretGenerated() bool
	GetTokenIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetMFAChallengeExpiry() time.Duration
}

const jwtSecretVar = "JWT_SECRET"

type Tokens struct{}

var _ TokenConfig = Tokens{}

var (
	generatedSecret     string
	generatedSecretOnce sync.Once
)

// GetJWTSecret returns JWT_SECRET, or a random per-process secret when unset.
// A generated secret invalidates every token on restart.
func (Tokens) GetJWTSecret() string {
	if secret := GetEnv(jwtSecretVar, ""); secret != "" {
		return secret
	}
	generatedSecretOnce.Do(func() {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		generatedSecret = hex.EncodeToString(b)
	})
	return generatedSecret
}

func (Tokens) IsJWTSecretGenerated() bool {
	return GetEnv(jwtSecretVar, "") == ""
}

func (Tokens) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "masapp")
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour)
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour) // 7 days
}

func (Tokens) GetMFAChallengeExpiry() time.Duration {
	return GetDuration("MFA_CHALLENGE_EXPIRY", 5*time.Minute)
}
