package utils

import (
	"crypto/md5"
	"fmt"
)

// HashParts hashes parts with a separator that cannot appear in them, so
// ("ab", "c") and ("a", "bc") differ.
func HashParts(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s\x00", len(p), p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
