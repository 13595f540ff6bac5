// Package hostproxy implements the server-to-host request proxy: a
// typed client call from the server to a host, and the host-to-server
// callback used to complete async tasks.
//
// The wire format is gRPC with a JSON codec rather than compiled
// protobuf messages: the request/response shapes below are plain Go
// structs, and grpc.ServiceDesc — the same low-level primitive
// protoc-gen-go-grpc emits into generated code — is built by hand in
// service.go. This keeps the proxy on real gRPC transport (HTTP/2
// framing, deadlines, streaming) without requiring a protobuf compiler
// in the build.
package hostproxy

import "github.com/virtualpytest/core/internal/domain"

// ActionBatchRequest is the body of POST /host/action/executeBatch,
// carried here as a unary RPC.
type ActionBatchRequest struct {
	TeamID         string           `json:"team_id"`
	DeviceID       string           `json:"device_id"`
	Actions        []*domain.Action `json:"actions"`
	RetryActions   []*domain.Action `json:"retry_actions"`
	FailureActions []*domain.Action `json:"failure_actions"`
}

// ActionBatchResponse mirrors domain.ActionBatchResult over the wire.
type ActionBatchResponse struct {
	Success     bool                    `json:"success"`
	Results     []*domain.ActionResult `json:"results"`
	PassedCount int                     `json:"passed_count"`
	TotalCount  int                     `json:"total_count"`
}

// VerificationBatchRequest is the body of POST /execute/verifications.
type VerificationBatchRequest struct {
	TeamID                    string                   `json:"team_id"`
	DeviceID                  string                   `json:"device_id"`
	UserinterfaceName         string                   `json:"userinterface_name"`
	ImageSourceURL            string                   `json:"image_source_url,omitempty"`
	TreeID                    string                   `json:"tree_id,omitempty"`
	NodeID                    string                   `json:"node_id,omitempty"`
	Verifications             []*domain.Verification   `json:"verifications"`
	VerificationPassCondition domain.VerificationPassCondition `json:"verification_pass_condition"`
	StrictParams              bool                     `json:"strict_params,omitempty"`
}

// VerificationBatchResponse mirrors domain.VerificationBatchResult.
type VerificationBatchResponse struct {
	Success     bool                          `json:"success"`
	Results     []*domain.VerificationResult `json:"results"`
	PassedCount int                           `json:"passed_count"`
	FailedCount int                           `json:"failed_count"`
	TotalCount  int                           `json:"total_count"`
	Message     string                        `json:"message"`
}

// NavigationRequest is the body of POST /execute/navigation.
type NavigationRequest struct {
	TeamID            string  `json:"team_id"`
	DeviceID          string  `json:"device_id"`
	TreeID            string  `json:"tree_id"`
	UserinterfaceName string  `json:"userinterface_name"`
	TargetNodeID      string  `json:"target_node_id,omitempty"`
	TargetNodeLabel   string  `json:"target_node_label,omitempty"`
	CurrentNodeID     string  `json:"current_node_id,omitempty"`
	ImageSourceURL    string  `json:"image_source_url,omitempty"`
}

// NavigationResponse carries the navigation executor's result envelope
//, plus the log/success envelope the orchestrator
// always attaches.
type NavigationResponse struct {
	Success             bool                          `json:"success"`
	TransitionsExecuted int                           `json:"transitions_executed"`
	TotalTransitions    int                           `json:"total_transitions"`
	ActionsExecuted     int                           `json:"actions_executed"`
	TotalActions        int                           `json:"total_actions"`
	ExecutionTimeMS     int64                         `json:"execution_time"`
	VerificationResults []*domain.VerificationResult `json:"verification_results,omitempty"`
	NavigationPath      []string                      `json:"navigation_path"`
	FinalPositionNodeID string                        `json:"final_position_node_id,omitempty"`
	Error               string                        `json:"error,omitempty"`
	Logs                string                        `json:"logs"`
}

// BlockRequest is the body of POST /execute/blocks.
type BlockRequest struct {
	TeamID   string         `json:"team_id"`
	DeviceID string         `json:"device_id"`
	Command  string         `json:"command"`
	Params   map[string]any `json:"params"`
}

// BlockResponse wraps a standard block's result plus the log envelope.
type BlockResponse struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message,omitempty"`
	AvailableBlocks []string       `json:"available_blocks,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
	Logs            string         `json:"logs"`
}

// TaskCompleteRequest is the body of POST /server/script/taskComplete:
// a host calling back to the server to complete an async task.
type TaskCompleteRequest struct {
	TaskID string `json:"task_id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TaskCompleteResponse acknowledges a callback.
type TaskCompleteResponse struct {
	Acknowledged bool `json:"acknowledged"`
}
