package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool mimics the pool's per-agent endpoints for one agent named "calc".
func fakePool(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /calc/a2a", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, req.Validate())

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "add":
			resp, err := NewResultResponse(req.ID, 5)
			require.NoError(t, err)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			_ = json.NewEncoder(w).Encode(NewErrorResponse(req.ID, NewMethodNotFound(req.Method)))
		}
	})
	mux.HandleFunc("GET /calc/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&AgentCard{
			Name:         "calc",
			Capabilities: []string{"add"},
			Endpoint:     "/calc/a2a",
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&HealthSnapshot{
			Status: "degraded",
			Agents: map[string]AgentStatus{
				"calc":    {Status: "healthy", Generation: 1},
				"weather": {Status: "unhealthy", Detail: "upstream timeout", Generation: 2},
			},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Send(t *testing.T) {
	srv := fakePool(t)
	client := NewClient(srv.URL)

	result, err := client.Send(context.Background(), "calc", "add", map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, "5", string(result))
}

func TestClient_SendRPCError(t *testing.T) {
	srv := fakePool(t)
	client := NewClient(srv.URL)

	_, err := client.Send(context.Background(), "calc", "divide", nil)
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeMethodNotFound, rpcErr.Code)
}

func TestClient_SendUnmountedAgent(t *testing.T) {
	srv := fakePool(t)
	client := NewClient(srv.URL)

	_, err := client.Send(context.Background(), "ghost", "add", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not mounted")
}

func TestClient_Health(t *testing.T) {
	srv := fakePool(t)
	client := NewClient(srv.URL)

	report, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "healthy", report.Agents["calc"].Status)
	assert.Equal(t, "upstream timeout", report.Agents["weather"].Detail)
	assert.Equal(t, uint64(2), report.Agents["weather"].Generation)
}

func TestClient_GetCard(t *testing.T) {
	srv := fakePool(t)
	client := NewClient(srv.URL)

	card, err := client.GetCard(context.Background(), "calc")
	require.NoError(t, err)
	assert.Equal(t, "calc", card.Name)
	assert.Equal(t, []string{"add"}, card.Capabilities)

	_, err = client.GetCard(context.Background(), "ghost")
	assert.Error(t, err)
}
