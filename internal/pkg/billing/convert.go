package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timestamp formats Paddle uses in webhook payloads. next_bill_date in
// particular sometimes arrives date-only.
const (
	EventTimeFormat = "2006-01-02 15:04:05"
	EventDateFormat = "2006-01-02"
)

// ParseEventTime parses a payload timestamp, accepting the full datetime
// format first and the date-only fallback second. Times are UTC.
func ParseEventTime(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(EventTimeFormat, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(EventDateFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing: unparseable timestamp %q", value)
	}
	return t.UTC(), nil
}

// encodePayload renders a payload as the JSON stored in audit rows.
func encodePayload(payload map[string]string) string {
	b, _ := json.Marshal(payload)
	return string(b)
}

// hashPayload builds the replay dedup key: sha256 over the key-sorted
// canonical encoding of the payload.
func hashPayload(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, key := range keys {
		fmt.Fprintf(h, "%s=%s\n", key, payload[key])
	}
	return hex.EncodeToString(h.Sum(nil))
}
