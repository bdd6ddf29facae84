package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conventionhub/backend/pkg/apperrors"
)

func init() { gin.SetMode(gin.TestMode) }

func render(t *testing.T, logger *zap.Logger, err error) (int, Body) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, logger, err)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.Unauthenticated("login"), http.StatusUnauthorized},
		{apperrors.Forbidden("nope"), http.StatusForbidden},
		{apperrors.NotFound("convention not found"), http.StatusNotFound},
		{apperrors.Invalid("bad"), http.StatusBadRequest},
		{apperrors.Conflict("slug taken"), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", apperrors.Conflict("slug taken")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, body := render(t, nil, tc.err)
		assert.Equal(t, tc.want, code, tc.err.Error())
		assert.False(t, body.Success)
	}
}

func TestErrorCarriesFieldsAndDetails(t *testing.T) {
	err := apperrors.Conflict("slug already in use").WithDetails(map[string]string{"slug": "fan-expo"})
	code, body := render(t, nil, err)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "slug already in use", body.Error)
	assert.Equal(t, map[string]interface{}{"slug": "fan-expo"}, body.Details)

	_, body = render(t, nil, apperrors.Validation(map[string]string{"name": "required"}))
	assert.Equal(t, "required", body.Fields["name"])
}

func TestInternalErrorsAreLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	code, body := render(t, zap.New(core), apperrors.Internal("insert convention", errors.New("pq: connection reset")))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Error)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "insert convention", logs.All()[0].Message)
}
