package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gated_chat_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestInitWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(&config.LogConfig{LogPath: dir, Level: "debug"}, "release")
	require.NoError(t, err)

	lg.Info("hello")
	require.NoError(t, lg.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitRejectsBadLevel(t *testing.T) {
	_, err := Init(&config.LogConfig{LogPath: t.TempDir(), Level: "loud"}, "release")
	require.Error(t, err)
}

func TestGinRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinLogger(), GinRecovery(false))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIsBrokenPipeError(t *testing.T) {
	require.True(t, isBrokenPipeError(errors.New("write: Broken Pipe")))
	require.True(t, isBrokenPipeError(errors.New("read: connection reset by peer")))
	require.False(t, isBrokenPipeError(errors.New("timeout")))
	require.False(t, isBrokenPipeError(nil))
}
