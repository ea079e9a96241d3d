package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/config"
	coreGrpc "github.com/msto63/ecsq/pkg/core/grpc"
	"github.com/msto63/ecsq/pkg/core/health"
	"github.com/msto63/ecsq/pkg/core/logging"
)

func testLogger() *logging.Logger {
	return logging.Wrap(nil, "server-test")
}

func testEngine(t *testing.T) *query.Engine {
	t.Helper()
	reg := registry.NewMemory(registry.Options{Logger: testLogger().Logger})
	position, err := reg.RegisterComponent("Position", 8)
	require.NoError(t, err)
	health, err := reg.RegisterComponent("Health", 4)
	require.NoError(t, err)

	e1 := reg.CreateEntity()
	e2 := reg.CreateEntity()
	require.NoError(t, reg.AddComponent(e1, position, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, reg.AddComponent(e2, position, []byte{8, 7, 6, 5, 4, 3, 2, 1}))
	require.NoError(t, reg.AddComponent(e2, health, []byte{100, 0, 0, 0}))

	engine, err := query.New(reg, query.Options{Logger: testLogger().Logger})
	require.NoError(t, err)
	return engine
}

func testService(t *testing.T) *QueryService {
	t.Helper()
	service, err := NewQueryService(testEngine(t), ServiceConfig{Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(service.Close)
	return service
}

func TestQueryService_Execute(t *testing.T) {
	service := testService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		status   string
		count    int
		entities []string
		payload  []byte
		code     string
	}{
		{"select", "SELECT ENTITIES WHERE HAS(Position)", "success", 2, []string{"0:1", "0:2"}, nil, ""},
		{"count", "COUNT ENTITIES WHERE HAS(Health)", "success", 1, nil, nil, ""},
		{"show", "SHOW Health OF ENTITY 0:2", "success", 1, nil, []byte{100, 0, 0, 0}, ""},
		{"no predicate", "SELECT ENTITIES", "success", 0, nil, nil, ""},
		{"syntax", "SELECT ENTITIES WHERE", "parse error", 0, nil, nil, "QUERY_SYNTAX"},
		{"empty", "   ", "invalid input", 0, nil, nil, "INVALID_INPUT"},
		{"missing entity", "SHOW Health OF ENTITY 9:9", "execution error", 0, nil, nil, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.Execute(ctx, tt.query)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.count, resp.Count)
			assert.Equal(t, tt.entities, resp.Entities)
			assert.Equal(t, tt.code, resp.Code)

			payload, perr := resp.PayloadBytes()
			require.NoError(t, perr)
			assert.Equal(t, tt.payload, payload)

			if tt.code == "" {
				assert.NoError(t, err)
				assert.True(t, resp.OK())
			} else {
				assert.Error(t, err)
				assert.False(t, resp.OK())
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestQueryService_CachesStatements(t *testing.T) {
	service := testService(t)

	for i := 0; i < 3; i++ {
		_, err := service.Execute(context.Background(), "COUNT ENTITIES WHERE HAS(Position)")
		require.NoError(t, err)
	}

	stats := service.CacheStats()
	assert.Equal(t, 1, stats["size"])
	assert.Equal(t, int64(2), stats["hits"])
}

func TestNewQueryService_NilEngine(t *testing.T) {
	_, err := NewQueryService(nil, ServiceConfig{})
	require.Error(t, err)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))
}

func TestResponse_StructRoundTrip(t *testing.T) {
	resp := &Response{
		Status:     "success",
		Kind:       "SELECT",
		Count:      2,
		Entities:   []string{"0:1", "0:2"},
		Payload:    "AQI=",
		DurationMS: 0.25,
	}

	s, err := resp.Struct()
	require.NoError(t, err)
	assert.Equal(t, resp, ResponseFromStruct(s))

	failed := &Response{Status: "parse error", Error: "invalid query", Code: "QUERY_SYNTAX"}
	s, err = failed.Struct()
	require.NoError(t, err)
	assert.Equal(t, failed, ResponseFromStruct(s))
}

func startGRPC(t *testing.T, service *QueryService) *Client {
	t.Helper()

	cfg := coreGrpc.DefaultServerConfig()
	cfg.EnableReflection = false
	cfg.Logger = testLogger()
	srv := coreGrpc.NewServer(cfg)
	RegisterQueryServiceServer(srv.GRPCServer(), &grpcService{service: service})

	listener := bufconn.Listen(1024 * 1024)
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	clientCfg := coreGrpc.DefaultClientConfig("passthrough:///bufnet")
	clientCfg.Logger = testLogger()
	conn, err := coreGrpc.Dial(clientCfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestGRPC_Execute(t *testing.T) {
	client := startGRPC(t, testService(t))
	ctx := context.Background()

	resp, err := client.Execute(ctx, "SELECT ENTITIES WHERE HAS_ANY(Health, Missing)")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "SELECT", resp.Kind)
	assert.Equal(t, []string{"0:2"}, resp.Entities)

	resp, err = client.Execute(ctx, "SHOW ALL OF ENTITY 0:2")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	resp, err = client.Execute(ctx, "SELECT nothing")
	require.NoError(t, err)
	assert.Equal(t, "parse error", resp.Status)
	assert.Equal(t, "QUERY_SYNTAX", resp.Code)
}

func TestGRPC_Canceled(t *testing.T) {
	client := startGRPC(t, testService(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Execute(ctx, "COUNT ENTITIES WHERE HAS(Position)")
	require.Error(t, err)
	assert.Equal(t, codes.Canceled, status.Code(err))
}

func TestExecutor_RemoteOutcome(t *testing.T) {
	executor := Executor{Client: startGRPC(t, testService(t))}
	ctx := context.Background()

	status, result, err := executor.Execute(ctx, "SELECT ENTITIES WHERE HAS(Position)")
	require.NoError(t, err)
	assert.Equal(t, query.StatusSuccess, status)
	assert.Equal(t, mdwast.StatementSelect, result.Kind)
	assert.Equal(t, []registry.EntityID{{High: 0, Low: 1}, {High: 0, Low: 2}}, result.Entities)

	status, result, err = executor.Execute(ctx, "COUNT ENTITIES WHERE HAS(Health)")
	require.NoError(t, err)
	assert.Equal(t, query.StatusSuccess, status)
	assert.Equal(t, mdwast.StatementCount, result.Kind)
	assert.Equal(t, 1, result.Count)

	status, result, err = executor.Execute(ctx, "SHOW Health OF ENTITY 0:2")
	require.NoError(t, err)
	assert.Equal(t, query.StatusSuccess, status)
	assert.Equal(t, []byte{100, 0, 0, 0}, result.Payload)

	status, result, err = executor.Execute(ctx, "SHOW Health OF ENTITY 0:1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, query.StatusExecutionError, status)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeNotFound))
}

func TestResponse_OutcomeMalformed(t *testing.T) {
	status, _, err := (&Response{Status: "success", Entities: []string{"nope"}}).Outcome()
	assert.Equal(t, query.StatusExecutionError, status)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidFormat))

	status, _, err = (&Response{Status: "success", Payload: "%%%"}).Outcome()
	assert.Equal(t, query.StatusExecutionError, status)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidFormat))

	status, _, err = (&Response{Status: "invalid input"}).Outcome()
	assert.Equal(t, query.StatusInvalidInput, status)
	assert.EqualError(t, err, "query failed")
}

func dialWS(t *testing.T, handler http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsReply struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg interface{}) wsReply {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocket(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWebSocketHandler(testService(t), time.Minute, testLogger()))
	conn := dialWS(t, mux)

	reply := roundTrip(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", reply.Type)

	reply = roundTrip(t, conn, map[string]interface{}{
		"type":    "query",
		"payload": map[string]string{"query": "COUNT ENTITIES WHERE HAS(Position)"},
	})
	require.Equal(t, "result", reply.Type)
	var resp Response
	require.NoError(t, json.Unmarshal(reply.Payload, &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "COUNT", resp.Kind)

	reply = roundTrip(t, conn, map[string]interface{}{
		"type":    "query",
		"payload": map[string]string{"query": "SHOW Sprite OF ENTITY 0:1"},
	})
	require.Equal(t, "error", reply.Type)
	var errPayload WSErrorPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &errPayload))
	assert.Equal(t, "NOT_FOUND", errPayload.Code)
	assert.Equal(t, "execution error", errPayload.Status)

	reply = roundTrip(t, conn, map[string]interface{}{"type": "query", "payload": "not an object"})
	require.Equal(t, "error", reply.Type)
	require.NoError(t, json.Unmarshal(reply.Payload, &errPayload))
	assert.Equal(t, "invalid_payload", errPayload.Code)

	reply = roundTrip(t, conn, map[string]interface{}{"type": "query", "payload": map[string]string{"query": ""}})
	require.NoError(t, json.Unmarshal(reply.Payload, &errPayload))
	assert.Equal(t, "invalid_request", errPayload.Code)

	reply = roundTrip(t, conn, map[string]string{"type": "subscribe"})
	require.NoError(t, json.Unmarshal(reply.Payload, &errPayload))
	assert.Equal(t, "unknown_type", errPayload.Code)
}

func TestServer_Handler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPC.Logger = testLogger()
	srv, err := New(testEngine(t), cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Service().Close)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	res, err := http.Get(httpSrv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var report health.Report
	require.NoError(t, json.NewDecoder(res.Body).Decode(&report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "registry", report.Checks[0].Name)
	assert.Equal(t, "2 entities, 2 components", report.Checks[0].Message)

	conn := dialWS(t, srv.Handler())
	reply := roundTrip(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", reply.Type)
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.GRPCPort = 9999
	cfg.EnableReflection = true

	out := ConfigFrom(cfg)
	assert.Equal(t, "127.0.0.1", out.GRPC.Host)
	assert.Equal(t, 9999, out.GRPC.Port)
	assert.True(t, out.GRPC.EnableReflection)
	assert.Equal(t, 30*time.Second, out.GRPC.KeepaliveInterval)
	assert.Equal(t, ":8310", out.WebSocketAddr)
	assert.Equal(t, 1024, out.CacheSize)
}

func TestServer_Run(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPC.Host = "127.0.0.1"
	cfg.GRPC.Port = 0
	cfg.GRPC.Logger = testLogger()
	cfg.WebSocketAddr = "127.0.0.1:0"

	srv, err := New(testEngine(t), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}
