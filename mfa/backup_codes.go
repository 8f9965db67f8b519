package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultBackupCodeCount = 10
	backupCodeLength       = 8
	// no 0/O or 1/I so codes survive being read aloud or written down
	backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateBackupCodes returns n codes formatted as XXXX-XXXX. Only their hashes should be stored.
func GenerateBackupCodes(n int) ([]string, error) {
	if n <= 0 {
		n = DefaultBackupCodeCount
	}
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	codes := make([]string, 0, n)
	for len(codes) < n {
		var sb strings.Builder
		for i := 0; i < backupCodeLength; i++ {
			if i == backupCodeLength/2 {
				sb.WriteByte('-')
			}
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, errors.Wrap(err, "GenerateBackupCodes")
			}
			sb.WriteByte(backupCodeAlphabet[idx.Int64()])
		}
		codes = append(codes, sb.String())
	}
	return codes, nil
}

// HashBackupCode hashes the normalised code, so "abcd efgh" and "ABCD-EFGH" hash alike.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(normaliseBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

func HashBackupCodes(codes []string) []string {
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = HashBackupCode(c)
	}
	return hashes
}

// VerifyBackupCode looks code up in hashes. On a match it returns true and the hashes that
// remain once the matched one is spent; otherwise false and hashes unchanged.
func VerifyBackupCode(code string, hashes []string) (bool, []string) {
	if normaliseBackupCode(code) == "" {
		return false, hashes
	}
	presented := []byte(HashBackupCode(code))

	match := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare(presented, []byte(h)) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return false, hashes
	}

	remaining := make([]string, 0, len(hashes)-1)
	remaining = append(remaining, hashes[:match]...)
	remaining = append(remaining, hashes[match+1:]...)
	return true, remaining
}

func normaliseBackupCode(code string) string {
	code = strings.ToUpper(code)
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, code)
}
