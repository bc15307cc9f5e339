package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aro-lang/aro/internal/runtime/engine"
	"github.com/aro-lang/aro/internal/runtime/spillhash"
	"github.com/aro-lang/aro/internal/web/auth"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *auth.AuthService) {
	t.Helper()
	store, err := spillhash.NewDiskStore(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	authSvc := auth.NewAuthService("test-secret", time.Hour)
	srv := New(Config{
		Engine: engine.New(store),
		Auth:   authSvc,
	})
	return srv, authSvc
}

func bearer(t *testing.T, authSvc *auth.AuthService, roles ...string) string {
	t.Helper()
	token, err := authSvc.GenerateToken("user-1", "user@example.com", roles)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHandleHealth_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCompile_RequiresBearerToken(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(compileRequest{Source: "(F: A) { <Extract> the <x: id> from the <request>. }"})
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCompile_WithValidTokenAndPermission(t *testing.T) {
	srv, authSvc := newTestServer(t)
	body, _ := json.Marshal(compileRequest{Source: "(F: A) { <Extract> the <x: id> from the <request>. }"})
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, authSvc, "operator"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp compileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestHandleCompile_ViewerRoleForbidden(t *testing.T) {
	srv, authSvc := newTestServer(t)
	body, _ := json.Marshal(compileRequest{Source: "(F: A) {}"})
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, authSvc, "viewer"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreatePipelineAndTeeOverWebSocket(t *testing.T) {
	srv, authSvc := newTestServer(t)
	httpServer := httptest.NewServer(srv)
	defer httpServer.Close()

	csv := "name,age\nava,9\nbo,12\n"
	createBody, _ := json.Marshal(createPipelineRequest{
		Source: "csv",
		Data:   csv,
		Steps: []stepWire{
			{Type: "take", N: 10},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines", bytes.NewReader(createBody))
	req.Header.Set("Authorization", bearer(t, authSvc, "operator"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created createPipelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	wsURL := "ws" + httpServer.URL[len("http"):] + created.TeeURL
	header := http.Header{}
	header.Set("Authorization", bearer(t, authSvc, "operator"))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	var rows []map[string]any
	for {
		var row map[string]any
		if err := conn.ReadJSON(&row); err != nil {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
}
