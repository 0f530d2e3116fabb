package paddle

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeypair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemKey)
}

func signPayload(t *testing.T, key *rsa.PrivateKey, payload map[string]string) map[string]string {
	t.Helper()

	digest := sha1.Sum(phpSerialize(payload))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, digest[:])
	require.NoError(t, err)

	signed := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		signed[k] = v
	}
	signed[SignatureField] = base64.StdEncoding.EncodeToString(signature)
	return signed
}

func TestPhpSerialize(t *testing.T) {
	got := phpSerialize(map[string]string{
		"b_key": "two",
		"a_key": "one",
	})
	// Keys must come out sorted; lengths are byte lengths.
	assert.Equal(t, `a:2:{s:5:"a_key";s:3:"one";s:5:"b_key";s:3:"two";}`, string(got))
}

func TestVerifyValidSignature(t *testing.T) {
	key, pemKey := newTestKeypair(t)
	verifier, err := NewWebhookVerifier(pemKey)
	require.NoError(t, err)

	payload := signPayload(t, key, map[string]string{
		"alert_name":      "subscription_created",
		"subscription_id": "sub_1",
		"event_time":      "2024-01-01 00:00:00",
	})
	assert.True(t, verifier.Verify(payload))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	key, pemKey := newTestKeypair(t)
	verifier, err := NewWebhookVerifier(pemKey)
	require.NoError(t, err)

	payload := signPayload(t, key, map[string]string{"alert_name": "subscription_created"})
	payload["alert_name"] = "subscription_cancelled"
	assert.False(t, verifier.Verify(payload))
}

func TestVerifyRejectsMissingOrMalformedSignature(t *testing.T) {
	_, pemKey := newTestKeypair(t)
	verifier, err := NewWebhookVerifier(pemKey)
	require.NoError(t, err)

	assert.False(t, verifier.Verify(map[string]string{"alert_name": "subscription_created"}))
	assert.False(t, verifier.Verify(map[string]string{
		"alert_name":   "subscription_created",
		SignatureField: "",
	}))
	assert.False(t, verifier.Verify(map[string]string{
		"alert_name":   "subscription_created",
		SignatureField: "%%% not base64 %%%",
	}))
}

func TestVerifyNilVerifier(t *testing.T) {
	var verifier *WebhookVerifier
	assert.False(t, verifier.Verify(map[string]string{"alert_name": "x", SignatureField: "y"}))
}

func TestNewWebhookVerifierRejectsGarbage(t *testing.T) {
	_, err := NewWebhookVerifier("not a pem key")
	assert.Error(t, err)
}
