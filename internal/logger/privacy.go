package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// minSaltLength is the shortest LOG_HASH_SALT accepted in production.
const minSaltLength = 32

// developmentSalt is used outside production when LOG_HASH_SALT is unset.
const developmentSalt = "development-only-log-hash-salt-do-not-use"

var hashSalt = developmentSalt

// InitHashSalt loads LOG_HASH_SALT. In production (APP_ENV=production) a salt of
// at least 32 characters is required and its absence panics; elsewhere the
// development salt is used when the variable is unset.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	production := strings.EqualFold(os.Getenv("APP_ENV"), "production")

	if salt == "" && !production {
		hashSalt = developmentSalt
		return
	}
	if salt == "" {
		panic("LOG_HASH_SALT must be set in production")
	}
	if len(salt) < minSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", minSaltLength))
	}

	hashSalt = salt
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows tracking user actions without exposing actual user IDs.
func HashUserID(userID int64) string {
	return saltedHash(fmt.Sprintf("%d", userID))
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	return saltedHash(fmt.Sprintf("%d", chatID))
}

// HashDescription lets log lines about the same transaction text be
// correlated without revealing it.
func HashDescription(desc string) string {
	return saltedHash(desc)
}

func saltedHash(value string) string {
	hash := sha256.Sum256([]byte(value + ":" + hashSalt))
	// First 8 characters for readability.
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeDescription removes or truncates sensitive information from descriptions.
// This redacts the description but preserves length information for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}

	words := strings.Fields(desc)
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(words), len(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
