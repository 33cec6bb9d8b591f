package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice/api/login"
	"lattice/api/shared/testdb"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/cache"
	"lattice/infrastructure/config"
	"lattice/infrastructure/events"
	"lattice/infrastructure/metrics"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
	"lattice/infrastructure/token"
)

const testSecret = "integration-secret-0123456789abcdef"

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	hub    *events.Hub
}

func setupIntegrationServer(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()
	db := testdb.Open(t)

	rbacSvc := rbac.New(cache.NewRbacRolesCache(), db)
	_, err := rbacSvc.EnsureSeeded(ctx)
	require.NoError(t, err)
	require.NoError(t, login.UpsertUserPasswordHash(ctx, db, "admin", rbac.RoleAdmin, "Admin123!Lattice"))
	require.NoError(t, login.UpsertUserPasswordHash(ctx, db, "operator", rbac.RoleOperator, "Operator123!Lattice"))

	tokens, err := token.NewService(testSecret, time.Hour)
	require.NoError(t, err)
	hub := events.NewHub(zap.NewNop(), 8)
	m := metrics.New(config.MetricsConfig{Namespace: "lattice_test"})
	hub.SetObserver(m)

	s := NewServer("127.0.0.1:0", Deps{
		DB:      db,
		Rbac:    rbacSvc,
		Audit:   audit.NewService(),
		Tokens:  tokens,
		Hub:     hub,
		Metrics: m,
	}, Options{CORSOrigins: []string{"*"}})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &integrationEnv{server: ts, db: db, hub: hub}
}

func (env *integrationEnv) do(t *testing.T, method, path, bearer string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.server.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func (env *integrationEnv) login(t *testing.T, username, password string) (string, token.Identity) {
	t.Helper()
	status, body := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status, string(body))
	var out struct {
		Token string         `json:"token"`
		User  token.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token, out.User
}

func sampleBookings() []map[string]any {
	return []map[string]any{{
		"name":          "Inbound A",
		"type":          "Inbound",
		"startDateTime": "2026-03-02T09:00:00",
		"endDateTime":   "2026-03-02T10:00:00",
	}}
}

func TestPublicRoutes(t *testing.T) {
	env := setupIntegrationServer(t)

	status, body := env.do(t, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Hello from the Lattice Data Server!"}`, string(body))

	status, body = env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
}

func TestLoginAndMe(t *testing.T) {
	env := setupIntegrationServer(t)

	status, body := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, string(body))

	status, _ = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ghost", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, status)

	tok, user := env.login(t, "operator", "Operator123!Lattice")
	assert.Equal(t, rbac.RoleOperator, user.Role)

	status, body = env.do(t, http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, status)
	var me token.Identity
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, user, me)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupIntegrationServer(t)

	status, _ := env.do(t, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/bookings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestQueryTokenOnlyOnStreamRoutes(t *testing.T) {
	env := setupIntegrationServer(t)
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	status, body := env.do(t, http.MethodGet, "/api/bookings?token="+admin, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Authentication required"}`, string(body))

	status, _ = env.do(t, http.MethodGet, "/api/me?token="+admin, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/api/events?token="+admin, nil)
	require.NoError(t, err)
	res, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
}

func TestPermissionsGateRoutes(t *testing.T) {
	env := setupIntegrationServer(t)
	operator, _ := env.login(t, "operator", "Operator123!Lattice")
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	status, _ := env.do(t, http.MethodGet, "/api/bookings", operator, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodDelete, "/api/bookings/all", operator, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"error":"Forbidden"}`, string(body))

	status, _ = env.do(t, http.MethodGet, "/api/users", operator, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodDelete, "/api/bookings/all", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":0}`, string(body))
}

func TestGrantAppliesToNextRequest(t *testing.T) {
	env := setupIntegrationServer(t)
	operator, _ := env.login(t, "operator", "Operator123!Lattice")
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	status, _ := env.do(t, http.MethodGet, "/api/users", operator, nil)
	require.Equal(t, http.StatusForbidden, status)

	grants := rbac.DefaultGrants()
	grants[rbac.RoleOperator] = append(grants[rbac.RoleOperator], rbac.ManageUsers)
	status, body := env.do(t, http.MethodPut, "/api/permissions", admin, grants)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = env.do(t, http.MethodGet, "/api/users", operator, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestScheduleSettingsUseNarrowerPermission(t *testing.T) {
	env := setupIntegrationServer(t)
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	grants := rbac.DefaultGrants()
	grants[rbac.RoleOperator] = append(grants[rbac.RoleOperator], rbac.ManageScheduleSettings)
	status, _ := env.do(t, http.MethodPut, "/api/permissions", admin, grants)
	require.Equal(t, http.StatusOK, status)

	operator, _ := env.login(t, "operator", "Operator123!Lattice")
	status, body := env.do(t, http.MethodPut, "/api/settings/schedule", operator,
		map[string]any{"visibleDays": []int{1, 2, 3}, "startHour": 7, "endHour": 17})
	assert.Equal(t, http.StatusOK, status, string(body))

	status, _ = env.do(t, http.MethodPut, "/api/settings/general", operator, map[string]any{"theme": "dark"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodGet, "/api/settings/schedule", operator, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"visibleDays":[1,2,3],"startHour":7,"endHour":17}`, string(body))
}

func TestPasswordRouteSelfOrManager(t *testing.T) {
	env := setupIntegrationServer(t)
	operator, opUser := env.login(t, "operator", "Operator123!Lattice")
	_, adminUser := env.login(t, "admin", "Admin123!Lattice")

	status, _ := env.do(t, http.MethodPut, "/api/users/"+adminUser.ID+"/password", operator, map[string]string{"password": "Hijack123!Lattice"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodPut, "/api/users/"+opUser.ID+"/password", operator, map[string]string{"password": "Changed123!Lattice"})
	require.Equal(t, http.StatusNoContent, status, string(body))
	env.login(t, "operator", "Changed123!Lattice")
}

func TestBookingWritesBroadcast(t *testing.T) {
	env := setupIntegrationServer(t)
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	c := env.hub.Register("test")
	defer env.hub.Unregister(c)

	status, body := env.do(t, http.MethodPost, "/api/bookings", admin, sampleBookings())
	require.Equal(t, http.StatusCreated, status, string(body))

	select {
	case msg := <-c.Send:
		assert.JSONEq(t, `{"type":"bookings-changed"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no event after booking create")
	}

	status, _ = env.do(t, http.MethodPost, "/api/bookings", admin, []any{})
	assert.Equal(t, http.StatusBadRequest, status)
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected event after failed write: %s", msg)
	default:
	}
}

func TestWebSocketReceivesBookingEvents(t *testing.T) {
	env := setupIntegrationServer(t)
	admin, _ := env.login(t, "admin", "Admin123!Lattice")

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws?token=" + admin
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)

	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := env.do(t, http.MethodPost, "/api/bookings", admin, sampleBookings())
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"bookings-changed"}`, string(msg))
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	env := setupIntegrationServer(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupIntegrationServer(t)
	env.do(t, http.MethodGet, "/api", "", nil)

	status, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "lattice_test_http_requests_total")
}

func TestAuditLogListsDangerZoneDeletes(t *testing.T) {
	env := setupIntegrationServer(t)
	operator, _ := env.login(t, "operator", "Operator123!Lattice")
	admin, user := env.login(t, "admin", "Admin123!Lattice")

	status, _ := env.do(t, http.MethodDelete, "/api/inventory/all", admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/audit", operator, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodGet, "/api/audit?entity=inventory&limit=5", admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var rows []struct {
		UserID     string `json:"userId"`
		Action     string `json:"action"`
		EntityType string `json:"entityType"`
	}
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, audit.ActionDeleteAll, rows[0].Action)
	assert.Equal(t, "inventory", rows[0].EntityType)
	assert.Equal(t, user.ID, rows[0].UserID)
}
