// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     server
// Description: gRPC query service (ecsq.v1.QueryService)
// Author:      Mike Stoffels
// Created:     2026-03-18
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"fmt"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name
	ServiceName = "ecsq.v1.QueryService"

	// ExecuteMethod is the full method name of Execute
	ExecuteMethod = "/" + ServiceName + "/Execute"
)

// QueryServiceServer is the server API for ecsq.v1.QueryService
type QueryServiceServer interface {
	Execute(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterQueryServiceServer registers srv on s
func RegisterQueryServiceServer(s grpc.ServiceRegistrar, srv QueryServiceServer) {
	s.RegisterService(&queryServiceDesc, srv)
}

var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    executeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ecsq/v1/query.proto",
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryServiceServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExecuteMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryServiceServer).Execute(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcService adapts QueryService to QueryServiceServer
type grpcService struct {
	service *QueryService
}

// Execute runs the query. Query failures travel in the response struct;
// only cancellation is returned as a gRPC error.
func (g *grpcService) Execute(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	resp, err := g.service.Execute(ctx, req.GetValue())
	if err != nil && mdwerror.HasCode(err, mdwerror.CodeCanceled) {
		return nil, err
	}
	return resp.Struct()
}

// Struct converts the response into a protobuf Struct
func (r *Response) Struct() (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"status":      r.Status,
		"count":       r.Count,
		"duration_ms": r.DurationMS,
	}
	if r.Kind != "" {
		fields["kind"] = r.Kind
	}
	if r.Entities != nil {
		entities := make([]interface{}, len(r.Entities))
		for i, id := range r.Entities {
			entities[i] = id
		}
		fields["entities"] = entities
	}
	if r.Payload != "" {
		fields["payload"] = r.Payload
	}
	if r.Error != "" {
		fields["error"] = r.Error
		fields["code"] = r.Code
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return s, nil
}

// ResponseFromStruct decodes a protobuf Struct produced by Response.Struct
func ResponseFromStruct(s *structpb.Struct) *Response {
	fields := s.GetFields()
	resp := &Response{
		Status:     fields["status"].GetStringValue(),
		Kind:       fields["kind"].GetStringValue(),
		Count:      int(fields["count"].GetNumberValue()),
		Payload:    fields["payload"].GetStringValue(),
		Error:      fields["error"].GetStringValue(),
		Code:       fields["code"].GetStringValue(),
		DurationMS: fields["duration_ms"].GetNumberValue(),
	}
	if list := fields["entities"].GetListValue(); list != nil {
		resp.Entities = make([]string, 0, len(list.GetValues()))
		for _, v := range list.GetValues() {
			resp.Entities = append(resp.Entities, v.GetStringValue())
		}
	}
	return resp
}

// Client calls a remote QueryService
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client on an established connection
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Execute sends one query
func (c *Client) Execute(ctx context.Context, query string, opts ...grpc.CallOption) (*Response, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ExecuteMethod, wrapperspb.String(query), out, opts...); err != nil {
		return nil, err
	}
	return ResponseFromStruct(out), nil
}

// Executor runs queries on a remote service with the signature of
// query.Engine.Execute
type Executor struct {
	Client *Client
}

// Execute sends one query and converts the response
func (e Executor) Execute(ctx context.Context, q string) (query.Status, *query.Result, error) {
	resp, err := e.Client.Execute(ctx, q)
	if err != nil {
		return query.StatusExecutionError, nil, err
	}
	return resp.Outcome()
}
