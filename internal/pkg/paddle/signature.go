package paddle

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SignatureField is the form field Paddle attaches the webhook signature to.
const SignatureField = "p_signature"

// WebhookVerifier checks the p_signature of classic webhook payloads: the
// remaining fields, sorted by key and PHP-serialized, must verify as an
// RSA-SHA1 signature under the vendor's public key.
type WebhookVerifier struct {
	publicKey *rsa.PublicKey
}

// NewWebhookVerifier parses a PEM-encoded RSA public key as shown in the
// Paddle vendor dashboard.
func NewWebhookVerifier(publicKeyPEM string) (*WebhookVerifier, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(publicKeyPEM)))
	if block == nil {
		return nil, errors.New("paddle: public key is not valid PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("paddle: parse public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("paddle: public key is not RSA")
	}
	return &WebhookVerifier{publicKey: rsaKey}, nil
}

// Verify reports whether payload carries a valid signature. Missing or
// malformed signatures return false, never an error.
func (v *WebhookVerifier) Verify(payload map[string]string) bool {
	if v == nil || v.publicKey == nil {
		return false
	}

	encoded, ok := payload[SignatureField]
	if !ok || strings.TrimSpace(encoded) == "" {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return false
	}

	fields := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == SignatureField {
			continue
		}
		fields[key] = value
	}

	digest := sha1.Sum(phpSerialize(fields))
	return rsa.VerifyPKCS1v15(v.publicKey, crypto.SHA1, digest[:], signature) == nil
}

// phpSerialize encodes a flat string map the way PHP's serialize() does,
// with keys in ascending order; string lengths are byte lengths.
func phpSerialize(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(fields))
	for _, key := range keys {
		fmt.Fprintf(&b, "s:%d:\"%s\";s:%d:\"%s\";", len(key), key, len(fields[key]), fields[key])
	}
	b.WriteString("}")
	return []byte(b.String())
}
