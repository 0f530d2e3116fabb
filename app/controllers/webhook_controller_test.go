package controllers

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/abroun/paddlesync/internal/pkg/billing"
	"github.com/abroun/paddlesync/internal/pkg/paddle"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	webhookTestOnce sync.Once
	webhookTestKey  *rsa.PrivateKey
)

// setupWebhookTest installs a test keypair as the process configuration.
// Storage stays disabled so the handler never needs a database.
func setupWebhookTest(t *testing.T) {
	t.Helper()
	webhookTestOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		webhookTestKey = key

		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			panic(err)
		}
		pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

		billing.Setup(&billing.Config{PublicKeyPEM: string(pemKey)})
	})
}

// signForm signs the form values the way Paddle does: base64 RSA-SHA1 over
// the PHP-serialized, key-sorted field map.
func signForm(t *testing.T, form url.Values) {
	t.Helper()

	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(keys))
	for _, key := range keys {
		value := form.Get(key)
		fmt.Fprintf(&b, `s:%d:"%s";s:%d:"%s";`, len(key), key, len(value), value)
	}
	b.WriteString("}")

	digest := sha1.Sum([]byte(b.String()))
	signature, err := rsa.SignPKCS1v15(rand.Reader, webhookTestKey, crypto.SHA1, digest[:])
	require.NoError(t, err)
	form.Set(paddle.SignatureField, base64.StdEncoding.EncodeToString(signature))
}

func newWebhookApp() *fiber.App {
	app := fiber.New()
	app.Post("/paddle/webhook/", HandlePaddleWebhook)
	return app
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHandlePaddleWebhookRejectsUnsignedPayload(t *testing.T) {
	setupWebhookTest(t)
	app := newWebhookApp()

	form := url.Values{}
	form.Set("alert_name", "subscription_created")
	resp := postForm(t, app, "/paddle/webhook/", form)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePaddleWebhookRejectsTamperedPayload(t *testing.T) {
	setupWebhookTest(t)
	app := newWebhookApp()

	form := url.Values{}
	form.Set("alert_name", "subscription_created")
	signForm(t, form)
	form.Set("alert_name", "subscription_cancelled")

	resp := postForm(t, app, "/paddle/webhook/", form)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePaddleWebhookRequiresAlertName(t *testing.T) {
	setupWebhookTest(t)
	app := newWebhookApp()

	form := url.Values{}
	form.Set("event_time", "2024-03-01 10:00:00")
	signForm(t, form)

	resp := postForm(t, app, "/paddle/webhook/", form)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePaddleWebhookAcknowledgesUnsupportedAlert(t *testing.T) {
	setupWebhookTest(t)
	app := newWebhookApp()

	form := url.Values{}
	form.Set("alert_name", "made_up_alert")
	signForm(t, form)

	resp := postForm(t, app, "/paddle/webhook/", form)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assertEmptyBody(t, resp)
}

func TestHandlePaddleWebhookAcceptsHandlerlessAlert(t *testing.T) {
	setupWebhookTest(t)
	app := newWebhookApp()

	form := url.Values{}
	form.Set("alert_name", "transfer_paid")
	form.Set("event_time", "2024-03-01 10:00:00")
	signForm(t, form)

	resp := postForm(t, app, "/paddle/webhook/", form)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assertEmptyBody(t, resp)
}

// Successful acknowledgements carry no body at all.
func assertEmptyBody(t *testing.T, resp *http.Response) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}
