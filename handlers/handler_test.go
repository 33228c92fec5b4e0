package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/require"
)

func healthRequest(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ping", nil)

	h.healthCheck(c)
	return w
}

func consulClientFor(t *testing.T, addr string) *consulapi.Client {
	t.Helper()
	config := consulapi.DefaultConfig()
	config.Address = addr
	client, err := consulapi.NewClient(config)
	require.NoError(t, err)
	return client
}

func TestHealthCheckWithoutConsul(t *testing.T) {
	w := healthRequest(t, &Handler{})

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
	require.NotContains(t, w.Body.String(), "consul")
}

func TestHealthCheckReportsConsulOk(t *testing.T) {
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer agent.Close()

	h := &Handler{client: consulClientFor(t, agent.URL)}
	w := healthRequest(t, h)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"consul":"ok"`)
}

func TestHealthCheckReportsConsulUnreachable(t *testing.T) {
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent down", http.StatusInternalServerError)
	}))
	defer agent.Close()

	h := &Handler{client: consulClientFor(t, agent.URL)}
	w := healthRequest(t, h)

	// The endpoint stays alive even when the registry is down.
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"consul":"unreachable"`)
}
