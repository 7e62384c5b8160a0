package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns the md5 hex digest of input. Answer and
// embedding cache keys are derived from it, so it must stay stable
// across releases or every cache entry is orphaned.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
