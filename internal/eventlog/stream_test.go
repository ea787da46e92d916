package eventlog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHandler_DeliversEvents(t *testing.T) {
	t.Parallel()

	// Arrange
	l := New()
	srv := httptest.NewServer(NewStreamHandler(l, nil))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// The subscription is registered after the upgrade completes.
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.subs) == 1
	}, time.Second, 5*time.Millisecond)

	// Act
	l.Record("Token issued", ClassSuccess)

	// Assert
	var ev Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "Token issued", ev.Message)
	assert.Equal(t, ClassSuccess, ev.StatusClass)
}

func TestStreamHandler_RejectsPlainRequest(t *testing.T) {
	t.Parallel()

	h := NewStreamHandler(New(), nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/stream", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
