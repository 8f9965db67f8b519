package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type SecurityConfig interface {
	GetLoginMaxAttempts() int
	GetLoginWindow() time.Duration
	GetAPIRateLimit() int
	GetAPIRateWindow() time.Duration
	GetQRSessionValidity() time.Duration
	GetTOTPSkew() uint
	GetBackupCodeCount() int
	GetBcryptCost() int
	GetSweepInterval() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetLoginMaxAttempts() int {
	return GetInt("LOGIN_MAX_ATTEMPTS", 5)
}

func (Security) GetLoginWindow() time.Duration {
	return GetDuration("LOGIN_WINDOW", 15*time.Minute)
}

// GetAPIRateLimit caps unauthenticated storefront calls (QR scans) per client per window.
func (Security) GetAPIRateLimit() int {
	return GetInt("API_RATE_LIMIT", 60)
}

func (Security) GetAPIRateWindow() time.Duration {
	return GetDuration("API_RATE_WINDOW", time.Minute)
}

func (Security) GetQRSessionValidity() time.Duration {
	return GetDuration("QR_SESSION_VALIDITY", 30*time.Minute)
}

func (Security) GetTOTPSkew() uint {
	skew := GetInt("TOTP_SKEW", 2)
	if skew < 0 {
		return 0
	}
	return uint(skew)
}

func (Security) GetBackupCodeCount() int {
	return GetInt("BACKUP_CODE_COUNT", 10)
}

func (Security) GetBcryptCost() int {
	cost := GetInt("BCRYPT_COST", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func (Security) GetSweepInterval() time.Duration {
	return GetDuration("SWEEP_INTERVAL", time.Minute)
}
