package subflow

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed sentence text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key from a text hash, the language pair
// and a variant naming the model and style that produced the translation.
func CacheKey(hash, sourceLang, targetLang, variant string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + variant
}
