package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := newRouter(APIKeyMiddleware(APIKeyConfig{
		HeaderName:  "X-FAX-BRIDGE-API-KEY",
		ValidAPIKey: "secret-key",
	}))

	tests := []struct {
		name       string
		headerKey  string
		wantStatus int
	}{
		{name: "valid key", headerKey: "secret-key", wantStatus: http.StatusOK},
		{name: "wrong key", headerKey: "wrong-key", wantStatus: http.StatusUnauthorized},
		{name: "missing key", headerKey: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.headerKey != "" {
				req.Header.Set("X-FAX-BRIDGE-API-KEY", tt.headerKey)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

type fakeParameterStore struct {
	values map[string]string
	err    error
}

func (f *fakeParameterStore) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	value, ok := f.values[name]
	if !ok {
		return "", errors.Errorf("parameter %s not found", name)
	}
	return value, nil
}

func (f *fakeParameterStore) PutParameter(ctx context.Context, name, value string, secure bool) error {
	return nil
}

func (f *fakeParameterStore) DeleteParameter(ctx context.Context, name string) error {
	return nil
}

func TestWebhookKeyMiddleware(t *testing.T) {
	params := &fakeParameterStore{values: map[string]string{
		"/prod/webhook_keys/twilio": "expected-key",
	}}
	r := newRouter(WebhookKeyMiddleware(params, "/prod/webhook_keys"))

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "valid pair", query: "?id=twilio&key=expected-key", wantStatus: http.StatusOK},
		{name: "wrong key", query: "?id=twilio&key=guessed-key", wantStatus: http.StatusForbidden},
		{name: "unknown id", query: "?id=other&key=expected-key", wantStatus: http.StatusForbidden},
		{name: "missing id", query: "?key=expected-key", wantStatus: http.StatusForbidden},
		{name: "missing key", query: "?id=twilio", wantStatus: http.StatusForbidden},
		{name: "no credentials", query: "", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected"+tt.query, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.JSONEq(t, `{"message": "Missing Authentication Token"}`, w.Body.String())
			}
		})
	}
}

func TestWebhookKeyMiddleware_LookupFailureDenies(t *testing.T) {
	params := &fakeParameterStore{err: errors.New("parameter store unavailable")}
	r := newRouter(WebhookKeyMiddleware(params, "/prod/webhook_keys"))

	req := httptest.NewRequest(http.MethodGet, "/protected?id=twilio&key=expected-key", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
