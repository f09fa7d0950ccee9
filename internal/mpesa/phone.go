package mpesa

import (
	"errors"
	"strings"
)

// CountryCode is prefixed to local-format numbers.
const CountryCode = "254"

var ErrInvalidPhone = errors.New("phone must be a Kenyan mobile number like 0712345678 or 254712345678")

// NormalizePhone strips everything but digits and rewrites local forms
// ("0712345678", "712345678") to the 2547XXXXXXXX form Daraja accepts.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = CountryCode + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		digits = CountryCode + digits
	}

	if len(digits) != 12 || !strings.HasPrefix(digits, CountryCode) {
		return "", ErrInvalidPhone
	}
	if next := digits[3]; next != '7' && next != '1' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
