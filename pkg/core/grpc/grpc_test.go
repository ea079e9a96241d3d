package grpc

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/pkg/core/logging"
)

type echoHandler func(ctx context.Context, in string) (string, error)

func echoServiceDesc() grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: "ecsq.test.Echo",
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Echo",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					out, err := srv.(echoHandler)(ctx, req.(*wrapperspb.StringValue).GetValue())
					if err != nil {
						return nil, err
					}
					return wrapperspb.String(out), nil
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ecsq.test.Echo/Echo"}, call)
			},
		}},
	}
}

func startEcho(t *testing.T, handler echoHandler, logs *bytes.Buffer) *grpc.ClientConn {
	t.Helper()

	logger := logging.Wrap(logging.NewLogger(logging.LoggerConfig{Format: "logfmt", Level: "debug", Output: logs}), "grpc-test")

	cfg := DefaultServerConfig()
	cfg.EnableReflection = false
	cfg.Logger = logger
	server := NewServer(cfg)

	desc := echoServiceDesc()
	server.GRPCServer().RegisterService(&desc, handler)

	listener := bufconn.Listen(1024 * 1024)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	clientCfg := DefaultClientConfig("passthrough:///bufnet")
	clientCfg.Logger = logger
	conn, err := Dial(clientCfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func callEcho(ctx context.Context, conn *grpc.ClientConn, in string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	err := conn.Invoke(ctx, "/ecsq.test.Echo/Echo", wrapperspb.String(in), out, opts...)
	return out.GetValue(), err
}

func TestServer_RoundTrip(t *testing.T) {
	var logs bytes.Buffer
	conn := startEcho(t, func(ctx context.Context, in string) (string, error) {
		return in + ":" + GetRequestID(ctx), nil
	}, &logs)

	var header metadata.MD
	ctx := WithRequestID(context.Background(), "req-42")
	out, err := callEcho(ctx, conn, "hello", grpc.Header(&header))
	require.NoError(t, err)

	assert.Equal(t, "hello:req-42", out)
	assert.Equal(t, []string{"req-42"}, header.Get(RequestIDHeader))
	assert.Contains(t, logs.String(), "gRPC request")
}

func TestServer_GeneratesRequestID(t *testing.T) {
	var logs bytes.Buffer
	conn := startEcho(t, func(ctx context.Context, in string) (string, error) {
		return GetRequestID(ctx), nil
	}, &logs)

	out, err := callEcho(context.Background(), conn, "x")
	require.NoError(t, err)
	assert.Len(t, out, 36)
}

func TestServer_MapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"syntax", mdwerror.New("bad query").WithCode(mdwerror.CodeQuerySyntax), codes.InvalidArgument},
		{"not found", mdwerror.New("no entity").WithCode(mdwerror.CodeNotFound), codes.NotFound},
		{"execution", mdwerror.New("failed").WithCode(mdwerror.CodeQueryExecution), codes.FailedPrecondition},
		{"plain", assert.AnError, codes.Internal},
		{"status", status.Error(codes.Unauthenticated, "nope"), codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			conn := startEcho(t, func(context.Context, string) (string, error) {
				return "", tt.err
			}, &logs)

			_, err := callEcho(context.Background(), conn, "x")
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestServer_RecoversPanic(t *testing.T) {
	var logs bytes.Buffer
	conn := startEcho(t, func(context.Context, string) (string, error) {
		panic("boom")
	}, &logs)

	_, err := callEcho(context.Background(), conn, "x")
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, logs.String(), "gRPC panic recovered")
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		code     mdwerror.Code
		expected codes.Code
	}{
		{mdwerror.CodeInvalidInput, codes.InvalidArgument},
		{mdwerror.CodeInvalidFormat, codes.InvalidArgument},
		{mdwerror.CodeDuplicateEntry, codes.AlreadyExists},
		{mdwerror.CodeTimeout, codes.DeadlineExceeded},
		{mdwerror.CodeCanceled, codes.Canceled},
		{mdwerror.CodeServiceUnavailable, codes.Unavailable},
		{mdwerror.CodeDataCorruption, codes.DataLoss},
		{mdwerror.CodeDatabaseError, codes.Internal},
		{mdwerror.CodeUnknown, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeFor(tt.code))
		})
	}
}

func TestToStatus_Context(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
}

func TestServer_Address(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 9999
	server := NewServer(cfg)
	assert.Equal(t, "127.0.0.1:9999", server.Address())
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "abc"))
	assert.Equal(t, "abc", GetRequestID(ctx))
}
