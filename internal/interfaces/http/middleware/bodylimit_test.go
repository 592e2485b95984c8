package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/equipsync/internal/interfaces/http/dto"
)

const runPath = "/api/v1/inventory-sync/run"

// newLimitedEngine mounts the manual sync route behind BodyLimit and counts
// how often the handler was reached.
func newLimitedEngine(limit int64, reached *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(BodyLimit(limit))
	engine.POST(runPath, func(c *gin.Context) {
		*reached++
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse("started"))
	})
	engine.GET("/api/v1/inventory-sync/runs", func(c *gin.Context) {
		*reached++
		c.JSON(http.StatusOK, dto.NewListResponse([]string{}, 0, 20))
	})
	return engine
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBodyLimit(t *testing.T) {
	t.Run("sync trigger with a small body runs", func(t *testing.T) {
		var reached int
		engine := newLimitedEngine(64, &reached)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, runPath, strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, reached)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("declared oversized body is rejected before the sync handler", func(t *testing.T) {
		var reached int
		engine := newLimitedEngine(64, &reached)

		req := httptest.NewRequest(http.MethodPost, runPath, strings.NewReader(strings.Repeat("x", 128)))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Zero(t, reached)

		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "Request body exceeds maximum allowed size", resp.Error.Message)
		assert.Equal(t, http.StatusRequestEntityTooLarge, dto.GetHTTPStatus(resp.Error.Code))
	})

	t.Run("body at the limit is accepted", func(t *testing.T) {
		var reached int
		engine := newLimitedEngine(64, &reached)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, runPath, strings.NewReader(strings.Repeat("x", 64))))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, reached)
	})

	t.Run("undeclared length is capped on read", func(t *testing.T) {
		var reached int
		engine := newLimitedEngine(64, &reached)

		req := httptest.NewRequest(http.MethodPost, runPath, strings.NewReader(strings.Repeat("x", 128)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 1, reached)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("run history reads are unaffected", func(t *testing.T) {
		var reached int
		engine := newLimitedEngine(1, &reached)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory-sync/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, reached)
	})
}
