package mpesa

import (
	"encoding/base64"
	"time"
)

// TimestampLayout is the YYYYMMDDHHmmss layout Daraja expects.
const TimestampLayout = "20060102150405"

// Daraja validates timestamps against East Africa Time.
var eat = time.FixedZone("EAT", 3*60*60)

// Timestamp formats t in EAT using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.In(eat).Format(TimestampLayout)
}

// Password builds the STK push password: base64(shortcode + passkey + timestamp).
// It embeds the timestamp, so it has to be recomputed for every request.
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// ParseTimestamp reads a TimestampLayout value (e.g. TransactionDate) as EAT.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, eat)
}
