package dummy

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Probes(t *testing.T) {
	h := NewServer(ServerConfig{}, zap.NewNop()).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/webhook/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/webhook/test", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/menu/opciones?sessionId=session_1234", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, "POST", "/webhook/health", "", "").Code)
}

func TestServer_Chat(t *testing.T) {
	h := NewServer(ServerConfig{}, zap.NewNop()).Handler()

	w := do(t, h, "POST", "/webhook/chat", `{"mensaje":"Hola","usuario":"u1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp["usuario"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/webhook/chat", `{"mensaje":""}`, "").Code)
}

func TestServer_RegisterLoginProcess(t *testing.T) {
	s := NewServer(ServerConfig{Secret: "s3cret"}, zap.NewNop())
	h := s.Handler()

	register := `{"username":"menu_user_1234","email":"menu_user_1234@test.com","password":"test123456","nombre":"Menu","apellido":"Load Test"}`
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/usuarios/registro", register, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/usuarios/registro", register, "").Code, "duplicate username")
	assert.Equal(t, 1, s.Registered())

	bad := do(t, h, "POST", "/api/usuarios/login", `{"username":"menu_user_1234","password":"wrong"}`, "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	w := do(t, h, "POST", "/api/usuarios/login", `{"username":"menu_user_1234","password":"test123456"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/api/menu/procesar?optionId=1&sessionId=session_1000", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/api/menu/procesar?optionId=1", "", "forged").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/api/menu/procesar?optionId=4&sessionId=session_1000", "", login.Token).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/menu/procesar?optionId=5&sessionId=session_1000", "", login.Token).Code)

	assert.Equal(t, 4, s.Hits("/api/menu/procesar"))
}

func TestServer_ErrorRate(t *testing.T) {
	h := NewServer(ServerConfig{ErrorRate: 1}, zap.NewNop()).Handler()
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "GET", "/webhook/health", "", "").Code)
}
