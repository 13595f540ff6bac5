package hostproxy

import (
	"context"

	"google.golang.org/grpc"
)

// HostExecutorServer is implemented by a host process and invoked by
// the server via the typed client in client.go.
type HostExecutorServer interface {
	ExecuteActions(context.Context, *ActionBatchRequest) (*ActionBatchResponse, error)
	ExecuteVerifications(context.Context, *VerificationBatchRequest) (*VerificationBatchResponse, error)
	ExecuteNavigation(context.Context, *NavigationRequest) (*NavigationResponse, error)
	ExecuteBlocks(context.Context, *BlockRequest) (*BlockResponse, error)
}

// CallbackServer is implemented by the server and invoked by a host
// completing an async task.
type CallbackServer interface {
	TaskComplete(context.Context, *TaskCompleteRequest) (*TaskCompleteResponse, error)
}

const (
	hostExecutorServiceName = "hostproxy.HostExecutor"
	callbackServiceName     = "hostproxy.Callback"
)

// RegisterHostExecutorServer wires srv's methods into s using a
// hand-built grpc.ServiceDesc — the same structure protoc-gen-go-grpc
// emits, populated directly rather than generated.
func RegisterHostExecutorServer(s grpc.ServiceRegistrar, srv HostExecutorServer) {
	s.RegisterService(&hostExecutorServiceDesc, srv)
}

var hostExecutorServiceDesc = grpc.ServiceDesc{
	ServiceName: hostExecutorServiceName,
	HandlerType: (*HostExecutorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteActions", Handler: unaryHandler(func(s any, ctx context.Context, req *ActionBatchRequest) (any, error) {
			return s.(HostExecutorServer).ExecuteActions(ctx, req)
		})},
		{MethodName: "ExecuteVerifications", Handler: unaryHandler(func(s any, ctx context.Context, req *VerificationBatchRequest) (any, error) {
			return s.(HostExecutorServer).ExecuteVerifications(ctx, req)
		})},
		{MethodName: "ExecuteNavigation", Handler: unaryHandler(func(s any, ctx context.Context, req *NavigationRequest) (any, error) {
			return s.(HostExecutorServer).ExecuteNavigation(ctx, req)
		})},
		{MethodName: "ExecuteBlocks", Handler: unaryHandler(func(s any, ctx context.Context, req *BlockRequest) (any, error) {
			return s.(HostExecutorServer).ExecuteBlocks(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hostproxy.proto",
}

// RegisterCallbackServer wires a host→server async-completion callback
// into s.
func RegisterCallbackServer(s grpc.ServiceRegistrar, srv CallbackServer) {
	s.RegisterService(&callbackServiceDesc, srv)
}

var callbackServiceDesc = grpc.ServiceDesc{
	ServiceName: callbackServiceName,
	HandlerType: (*CallbackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TaskComplete", Handler: unaryHandler(func(s any, ctx context.Context, req *TaskCompleteRequest) (any, error) {
			return s.(CallbackServer).TaskComplete(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hostproxy.proto",
}

// unaryHandler adapts a typed (server, ctx, *Req) -> (*Resp, error)
// function into the grpc.methodHandler signature grpc-go expects.
func unaryHandler[Req any](fn func(srv any, ctx context.Context, req *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}
