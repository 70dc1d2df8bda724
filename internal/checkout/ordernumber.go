package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNumberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// generateOrderNumber builds a human-quotable order reference like
// ATT-20260829-7F3K2Q. The suffix is random; the unique index on
// order_number catches the astronomically rare collision and the
// transaction retries surface it as a conflict.
func generateOrderNumber(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// fall back to a time-derived suffix; uniqueness is still enforced by the index
		return fmt.Sprintf("ATT-%s-%06d", now.UTC().Format("20060102"), now.UnixNano()%1000000)
	}
	for i := range buf {
		buf[i] = orderNumberAlphabet[int(buf[i])%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ATT-%s-%s", now.UTC().Format("20060102"), string(buf))
}
