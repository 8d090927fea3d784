package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
	"github.com/noah-isme/sma-academics-api/pkg/middleware/requestid"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", handler, func(c *gin.Context) { c.Header("X-Reached", "yes") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestPage(t *testing.T) {
	rec, body := serve(t, func(c *gin.Context) {
		Page(c, []string{"a"}, &models.Pagination{Page: 2, PageSize: 1, TotalCount: 3})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `["a"]`, string(body["data"]))
	assert.Contains(t, body, "pagination")
	assert.JSONEq(t, `"req-1"`, string(body["request_id"]))
	assert.NotContains(t, body, "error")
}

func TestCreated(t *testing.T) {
	rec, body := serve(t, func(c *gin.Context) { Created(c, map[string]string{"id": "x"}) })

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"x"}`, string(body["data"]))
	assert.NotContains(t, body, "pagination")
}

func TestErrorAbortsChain(t *testing.T) {
	rec, body := serve(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrConflict, "roll number already taken in this class offering"))
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Reached"))
	assert.NotContains(t, body, "data")

	var appErr appErrors.Error
	require.NoError(t, json.Unmarshal(body["error"], &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "roll number already taken in this class offering", appErr.Message)
}
