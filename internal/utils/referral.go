package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const ReferralPrefix = "VIP"

var referralEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateReferralCode returns a code of the form VIP-XXXXXX where X is an
// upper-case base32 character.
func GenerateReferralCode() (string, error) {
	// 4 bytes encode to 7 base32 characters; the first 6 are kept.
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	randomStr := strings.ToUpper(referralEncoding.EncodeToString(randomBytes))[:6]
	return ReferralPrefix + "-" + randomStr, nil
}

// IsReferralCode reports whether code has the VIP-XXXXXX shape.
func IsReferralCode(code string) bool {
	rest, ok := strings.CutPrefix(code, ReferralPrefix+"-")
	if !ok || len(rest) != 6 {
		return false
	}
	for _, r := range rest {
		if !((r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7')) {
			return false
		}
	}
	return true
}
