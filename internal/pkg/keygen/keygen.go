// Package keygen issues redemption keys for purchased DLCs.
package keygen

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	alphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength = 9
)

// RedemptionKey returns the uppercased game id followed by a dash and a random alphanumeric suffix,
// e.g. MINECRAFT-DUNGEONS-7K2Q9ZB0A.
func RedemptionKey(gameID string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(gameID) + 1 + suffixLength)
	sb.WriteString(strings.ToUpper(gameID))
	sb.WriteByte('-')

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}
