package hostproxy

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// HostExecutorClient is the typed client the server uses to call a
// host over gRPC.
type HostExecutorClient struct {
	cc *grpc.ClientConn
}

// Dial connects to a host at addr.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*HostExecutorClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("hostproxy: dial %s: %w", addr, err)
	}
	return &HostExecutorClient{cc: cc}, nil
}

// Close releases the underlying connection.
func (c *HostExecutorClient) Close() error { return c.cc.Close() }

func (c *HostExecutorClient) ExecuteActions(ctx context.Context, req *ActionBatchRequest) (*ActionBatchResponse, error) {
	resp := new(ActionBatchResponse)
	if err := c.cc.Invoke(ctx, "/"+hostExecutorServiceName+"/ExecuteActions", req, resp); err != nil {
		return nil, fmt.Errorf("hostproxy: execute actions: %w", err)
	}
	return resp, nil
}

func (c *HostExecutorClient) ExecuteVerifications(ctx context.Context, req *VerificationBatchRequest) (*VerificationBatchResponse, error) {
	resp := new(VerificationBatchResponse)
	if err := c.cc.Invoke(ctx, "/"+hostExecutorServiceName+"/ExecuteVerifications", req, resp); err != nil {
		return nil, fmt.Errorf("hostproxy: execute verifications: %w", err)
	}
	return resp, nil
}

func (c *HostExecutorClient) ExecuteNavigation(ctx context.Context, req *NavigationRequest) (*NavigationResponse, error) {
	resp := new(NavigationResponse)
	if err := c.cc.Invoke(ctx, "/"+hostExecutorServiceName+"/ExecuteNavigation", req, resp); err != nil {
		return nil, fmt.Errorf("hostproxy: execute navigation: %w", err)
	}
	return resp, nil
}

func (c *HostExecutorClient) ExecuteBlocks(ctx context.Context, req *BlockRequest) (*BlockResponse, error) {
	resp := new(BlockResponse)
	if err := c.cc.Invoke(ctx, "/"+hostExecutorServiceName+"/ExecuteBlocks", req, resp); err != nil {
		return nil, fmt.Errorf("hostproxy: execute blocks: %w", err)
	}
	return resp, nil
}

// CallbackClient is the typed client a host uses to complete an async
// task on the server.
type CallbackClient struct {
	cc *grpc.ClientConn
}

// DialServer connects to the server's callback endpoint.
func DialServer(ctx context.Context, addr string, opts ...grpc.DialOption) (*CallbackClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("hostproxy: dial server %s: %w", addr, err)
	}
	return &CallbackClient{cc: cc}, nil
}

func (c *CallbackClient) Close() error { return c.cc.Close() }

func (c *CallbackClient) TaskComplete(ctx context.Context, req *TaskCompleteRequest) (*TaskCompleteResponse, error) {
	resp := new(TaskCompleteResponse)
	if err := c.cc.Invoke(ctx, "/"+callbackServiceName+"/TaskComplete", req, resp); err != nil {
		return nil, fmt.Errorf("hostproxy: task complete callback: %w", err)
	}
	return resp, nil
}
