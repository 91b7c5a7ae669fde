package xid

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a time-ordered identifier. The prefix is kept only for
// readability in logs and is not required to parse the id.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return prefix + "_" + strings.ReplaceAll(id.String(), "-", "")
}

const skuAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SKU generates a random product code such as SKU-7KQ2M9XA.
func SKU() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("SKU-%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]))
	}
	for i, b := range buf {
		buf[i] = skuAlphabet[int(b)%len(skuAlphabet)]
	}
	return "SKU-" + string(buf)
}
