package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dmview/internal/config"
	"github.com/vovakirdan/dmview/internal/store/sqlite"
)

// startTestServer runs the router over an in-memory SQLite store.
func startTestServer(t *testing.T, writeLimit int) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	disabledLogger := zerolog.New(nil)
	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		WriteRateLimit:    writeLimit,
	}

	ts := httptest.NewServer(NewRouter(st, &cfg, &disabledLogger))
	t.Cleanup(ts.Close)
	return ts
}
