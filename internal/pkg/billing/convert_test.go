package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventTime(t *testing.T) {
	got, err := ParseEventTime("2024-03-01 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), got)

	// next_bill_date sometimes arrives date-only.
	got, err = ParseEventTime("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseEventTime("01/03/2024")
	assert.Error(t, err)

	_, err = ParseEventTime("")
	assert.Error(t, err)
}

func TestHashPayloadIsOrderInsensitive(t *testing.T) {
	a := hashPayload(map[string]string{"alert_name": "x", "subscription_id": "sub_1"})
	b := hashPayload(map[string]string{"subscription_id": "sub_1", "alert_name": "x"})
	assert.Equal(t, a, b)

	c := hashPayload(map[string]string{"alert_name": "x", "subscription_id": "sub_2"})
	assert.NotEqual(t, a, c)
}
