package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func TestHealthyResponse(t *testing.T) {
	c := NewChecker(&mockPinger{}, "test")

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, 200, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StatusHealthy, resp.Status)
	require.Equal(t, "test", resp.Version)
	require.Equal(t, StatusHealthy, resp.Components["store"].Status)
	require.NotEmpty(t, resp.Uptime)
}

func TestUnhealthyWhenStoreFails(t *testing.T) {
	c := NewChecker(&mockPinger{err: errors.New("connection refused")}, "test")

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, 503, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StatusUnhealthy, resp.Status)
	require.Contains(t, resp.Components["store"].Message, "connection refused")
}

func TestUnhealthyWithoutStore(t *testing.T) {
	c := NewChecker(nil, "test")

	resp := c.Check(context.Background())
	require.Equal(t, StatusUnhealthy, resp.Status)
}
