package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lingua/internal/ipc"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code ipc.Code
		want int
	}{
		{ipc.CodeNotFound, http.StatusNotFound},
		{ipc.CodeUnknownMethod, http.StatusNotFound},
		{ipc.CodeInvalidArgument, http.StatusBadRequest},
		{ipc.CodeConflict, http.StatusConflict},
		{ipc.CodeTimeout, http.StatusGatewayTimeout},
		{ipc.CodeUnavailable, http.StatusServiceUnavailable},
		{ipc.CodeInternal, http.StatusInternalServerError},
		{ipc.Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForCode(tt.code))
		})
	}
}

func TestRespondInvoke(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondInvoke(c, map[string]int{"n": 1}, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"data":{"n":1}}`, w.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondInvoke(c, nil, &ipc.Envelope{Code: ipc.CodeConflict, Message: "record already exists", Method: "audios:create", Timestamp: 42})

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp InvokeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ipc.CodeConflict, resp.Error.Code)
		assert.Equal(t, int64(42), resp.Error.Timestamp)
	})
}
