package callable

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCodeMapping(t *testing.T) {
	cases := []struct {
		code   Code
		status string
		http   int
	}{
		{Unauthenticated, "UNAUTHENTICATED", http.StatusUnauthorized},
		{PermissionDenied, "PERMISSION_DENIED", http.StatusForbidden},
		{InvalidArgument, "INVALID_ARGUMENT", http.StatusBadRequest},
		{Internal, "INTERNAL", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.code.Status(), tc.code)
		assert.Equal(t, tc.http, tc.code.HTTPStatus(), tc.code)
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewError(PermissionDenied, "no"))
	assert.Equal(t, PermissionDenied, CodeOf(wrapped))
	assert.Equal(t, Internal, CodeOf(errors.New("boom")))
}

func serve(t *testing.T, body string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/fn", h)
	req := httptest.NewRequest(http.MethodPost, "/fn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBindAndRespond(t *testing.T) {
	w := serve(t, `{"data":{"x":1}}`, func(c *gin.Context) {
		data, err := Bind(c)
		require.NoError(t, err)
		Respond(c, json.RawMessage(data))
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":{"x":1}}`, w.Body.String())
}

func TestBind_Malformed(t *testing.T) {
	w := serve(t, `{"data":`, func(c *gin.Context) {
		_, err := Bind(c)
		require.Error(t, err)
		Fail(c, err)
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"status":"INVALID_ARGUMENT","message":"Bad Request"}}`, w.Body.String())
}

func TestFail_HidesForeignErrors(t *testing.T) {
	w := serve(t, `{}`, func(c *gin.Context) {
		Fail(c, errors.New("dial tcp 10.0.0.1:443: connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
