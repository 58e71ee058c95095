package client

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeApplicationServerKey converts the base64url encoded VAPID public
// key handed out by the server into the raw bytes the push service needs
// when creating a subscription. Pure, no side effects.
func DecodeApplicationServerKey(base64URL string) ([]byte, error) {
	for _, r := range base64URL {
		if !isBase64URLChar(r) {
			return nil, fmt.Errorf("invalid application server key: character %q is not in the base64url alphabet", r)
		}
	}

	padded := base64URL
	if rem := len(padded) % 4; rem != 0 {
		padded += strings.Repeat("=", 4-rem)
	}

	translated := strings.NewReplacer("-", "+", "_", "/").Replace(padded)

	raw, err := base64.StdEncoding.DecodeString(translated)
	if err != nil {
		return nil, fmt.Errorf("invalid application server key: %w", err)
	}
	return raw, nil
}

func isBase64URLChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '=':
		return true
	}
	return false
}
