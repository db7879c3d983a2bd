package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/mcp"
	"github.com/rpggio/ngoboard/internal/payment"
	"github.com/rpggio/ngoboard/internal/sqlite"
	"github.com/rpggio/ngoboard/internal/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Well-known tokens registered by New.
const (
	AdminToken = "admin-token"
	OrgToken   = "org1-token"
	OtherToken = "org2-token"
)

// TestServer runs the full HTTP stack on an in-memory database.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Keys   *sqlite.APIKeyRepository

	nextID atomic.Int64
}

// Options tweaks the services built by New.
type Options struct {
	Policy         report.ReportingPolicy
	PaymentCeiling decimal.Decimal
}

// New starts a server with an admin key and keys for organizations org1 and
// org2.
func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	projectRepo := sqlite.NewProjectRepository(db)
	reportRepo := sqlite.NewReportRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	keys := sqlite.NewAPIKeyRepository(db)

	projectSvc := project.NewService(projectRepo, reportRepo, activityRepo, payment.NewSandbox("USD", opts.PaymentCeiling, nil), nil)
	reportSvc := report.NewService(reportRepo, projectSvc, activityRepo, report.DefaultDerivedCatalog(), opts.Policy, nil)
	activitySvc := activity.NewService(activityRepo, nil)

	handler := mcp.NewHandler(projectSvc, reportSvc, activitySvc)
	server := httptest.NewServer(transport.NewServer(transport.Config{
		Handler:        handler,
		Projects:       projectSvc,
		Reports:        reportSvc,
		AuthMiddleware: transport.AuthMiddleware(keys),
	}))

	ts := &TestServer{Server: server, DB: db, Keys: keys}

	ctx := context.Background()
	require.NoError(t, keys.Add(ctx, AdminToken, auth.Identity{Role: auth.RoleAdmin}, "test admin"))
	require.NoError(t, keys.Add(ctx, OrgToken, auth.Identity{OrgID: "org1", Role: auth.RoleOrganization}, ""))
	require.NoError(t, keys.Add(ctx, OtherToken, auth.Identity{OrgID: "org2", Role: auth.RoleOrganization}, ""))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// Call invokes a tool over JSON-RPC. A non-nil *transport.Error is returned
// for JSON-RPC error responses.
func (ts *TestServer) Call(t *testing.T, token, method string, params any) (json.RawMessage, *transport.Error) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      ts.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result json.RawMessage  `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result, out.Error
}

// MustCall invokes a tool and decodes its result into v.
func (ts *TestServer) MustCall(t *testing.T, token, method string, params, v any) {
	t.Helper()
	result, rpcErr := ts.Call(t, token, method, params)
	require.Nil(t, rpcErr, "%s failed: %+v", method, rpcErr)
	if v != nil {
		require.NoError(t, json.Unmarshal(result, v))
	}
}

// ErrorCode returns the domain code carried in a JSON-RPC error.
func ErrorCode(t *testing.T, rpcErr *transport.Error) string {
	t.Helper()
	require.NotNil(t, rpcErr)
	data, ok := rpcErr.Data.(map[string]any)
	require.True(t, ok, "error has no data: %+v", rpcErr)
	code, _ := data["code"].(string)
	return code
}

// Get performs an authenticated GET against the server.
func (ts *TestServer) Get(t *testing.T, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
