package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet without look-alike characters (0/O, 1/I/L).
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Random returns n characters drawn uniformly from alphabet.
func Random(alphabet string, n int) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("codegen: invalid length %d", n)
	}
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("codegen: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Grouped returns groups blocks of size characters joined by "-", e.g. XXXX-XXXX-XXXX.
func Grouped(groups, size int) (string, error) {
	parts := make([]string, groups)
	for i := range parts {
		p, err := Random(Alphabet, size)
		if err != nil {
			return "", err
		}
		parts[i] = p
	}
	return strings.Join(parts, "-"), nil
}

// Normalize upper-cases and trims user input before lookups.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
