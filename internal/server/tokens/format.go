package tokens

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/habittracker/internal/common"
)

// secretSize is the number of random bytes behind every refresh secret.
const secretSize = 64

// FormatToken joins a token id and secret into the plaintext handed to clients.
func FormatToken(tokenID, secret string) string {
	return tokenID + "." + secret
}

// ParseToken splits a presented plaintext on its first '.'. It reports false
// for blank input or when either side is empty.
func ParseToken(s string) (tokenID, secret string, ok bool) {
	if strings.TrimSpace(s) == "" {
		return "", "", false
	}
	tokenID, secret, found := strings.Cut(s, ".")
	if !found || tokenID == "" || secret == "" {
		return "", "", false
	}
	return tokenID, secret, true
}

func newTokenID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newSecret() (string, error) {
	return common.MakeRandBase64String(secretSize)
}
