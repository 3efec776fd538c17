package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/metrics"
)

type echoArgs struct {
	Text string `json:"text" validate:"required"`
}

func newTestRegistry(t *testing.T) *ipc.Registry {
	t.Helper()
	reg := ipc.NewRegistry(ipc.Config{Timeout: time.Second})
	require.NoError(t, reg.Handle("test:echo", ipc.Typed(func(_ context.Context, req echoArgs) (echoArgs, error) {
		return req, nil
	})))
	require.NoError(t, reg.Handle("test:fail", ipc.Typed(func(context.Context, ipc.NoArgs) (any, error) {
		return nil, errors.New("database exploded")
	})))
	reg.MarkReady()
	return reg
}

func newTestRouter(t *testing.T, token string, m *metrics.Metrics) (*gin.Engine, *ipc.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := newTestRegistry(t)
	router := NewRouter(RouterConfig{
		Registry: reg,
		Hub:      NewHub(nil, m),
		Metrics:  m,
		Token:    token,
		Version:  "test",
	})
	return router, reg
}

func doRequest(router http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Ping(t *testing.T) {
	router, _ := newTestRouter(t, "", nil)

	w := doRequest(router, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRouter_Invoke(t *testing.T) {
	router, _ := newTestRouter(t, "", nil)

	tests := []struct {
		name     string
		channel  string
		body     string
		wantCode int
		wantOK   bool
		wantErr  ipc.Code
	}{
		{name: "success", channel: "test:echo", body: `{"text":"hola"}`, wantCode: http.StatusOK, wantOK: true},
		{name: "validation", channel: "test:echo", body: `{}`, wantCode: http.StatusBadRequest, wantErr: ipc.CodeInvalidArgument},
		{name: "malformed json", channel: "test:echo", body: `{"text":`, wantCode: http.StatusBadRequest, wantErr: ipc.CodeInvalidArgument},
		{name: "unknown channel", channel: "test:missing", body: ``, wantCode: http.StatusNotFound, wantErr: ipc.CodeUnknownMethod},
		{name: "internal error", channel: "test:fail", body: ``, wantCode: http.StatusInternalServerError, wantErr: ipc.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/ipc/invoke/"+tt.channel, tt.body, nil)
			assert.Equal(t, tt.wantCode, w.Code)

			var resp InvokeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantOK, resp.OK)
			if tt.wantOK {
				assert.Equal(t, map[string]any{"text": "hola"}, resp.Data)
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
			assert.Equal(t, tt.channel, resp.Error.Method)
			assert.NotZero(t, resp.Error.Timestamp)
		})
	}
}

func TestRouter_InternalErrorsAreNotLeaked(t *testing.T) {
	router, _ := newTestRouter(t, "", nil)

	w := doRequest(router, http.MethodPost, "/ipc/invoke/test:fail", "", nil)
	assert.NotContains(t, w.Body.String(), "database exploded")
}

func TestRouter_Channels(t *testing.T) {
	router, _ := newTestRouter(t, "", nil)

	w := doRequest(router, http.MethodGet, "/ipc/channels", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var channels []ipc.ChannelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &channels))
	require.Len(t, channels, 2)
	assert.Equal(t, "test:echo", channels[0].Channel)
	assert.Equal(t, "1s", channels[0].Timeout)
}

func TestRouter_Token(t *testing.T) {
	router, _ := newTestRouter(t, "s3cret", nil)

	w := doRequest(router, http.MethodGet, "/ipc/channels", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/ipc/channels", "", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	t.Run("served when enabled", func(t *testing.T) {
		router, _ := newTestRouter(t, "", metrics.New())

		doRequest(router, http.MethodPost, "/ipc/invoke/test:echo", `{"text":"x"}`, nil)
		w := doRequest(router, http.MethodGet, "/metrics", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ipc_requests_total")
	})

	t.Run("absent when disabled", func(t *testing.T) {
		router, _ := newTestRouter(t, "", nil)

		w := doRequest(router, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
