package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/virtualpytest/core/internal/domain"
)

// scriptExecuteRequest mirrors cmd/host's request shape without
// importing the host's main package (Go forbids cross-cmd imports of
// package main).
type scriptExecuteRequest struct {
	ScriptName string            `json:"script_name"`
	Args       map[string]string `json:"args"`
	Async      bool              `json:"async"`
	TaskID     string            `json:"task_id,omitempty"`
}

type scriptExecuteResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// newHostScriptRunner builds a campaign.ScriptRunner that blocks on a
// synchronous call to the target host's script execution endpoint. A
// host-reported script failure (out.Success == false) is a legitimate
// outcome, not a runner error: the child ran and recorded its own
// result, so it's reported back as success=false with err == nil. err
// is reserved for the runner failing to determine an outcome at all.
func newHostScriptRunner(hosts *hostRegistry, httpClient *http.Client, hostName string) func(ctx context.Context, cfg domain.ScriptConfiguration) (bool, error) {
	return func(ctx context.Context, cfg domain.ScriptConfiguration) (bool, error) {
		addr, ok := hosts.httpAddr(hostName)
		if !ok {
			return false, fmt.Errorf("host %q has no registered http address", hostName)
		}

		args := make(map[string]string, len(cfg.Parameters))
		for k, v := range cfg.Parameters {
			args[k] = fmt.Sprintf("%v", v)
		}

		body, err := json.Marshal(scriptExecuteRequest{ScriptName: cfg.ScriptName, Args: args})
		if err != nil {
			return false, fmt.Errorf("encode script request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/host/script/execute", bytes.NewReader(body))
		if err != nil {
			return false, fmt.Errorf("build script request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return false, fmt.Errorf("call host %q: %w", hostName, err)
		}
		defer resp.Body.Close()

		var out scriptExecuteResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return false, fmt.Errorf("decode script response: %w", err)
		}
		return out.Success, nil
	}
}
