package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/virtualpytest/core/internal/hostproxy"
	"github.com/virtualpytest/core/internal/logging"
)

// scriptExecuteRequest is the body of POST /host/script/execute.
type scriptExecuteRequest struct {
	ScriptName string            `json:"script_name"`
	Args       map[string]string `json:"args"`
	Async      bool              `json:"async"`
	TaskID     string            `json:"task_id,omitempty"`
}

type scriptExecuteResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// scriptTimeout matches the harness subprocess timeout: scripts run as
// their own OS process and the host enforces an upper bound independent
// of whatever the script itself does.
const scriptTimeout = 300 * time.Second

func (h *hostServer) handleScriptExecute(w http.ResponseWriter, r *http.Request) {
	var req scriptExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ScriptName == "" || strings.ContainsAny(req.ScriptName, "/\\") {
		http.Error(w, "invalid script_name", http.StatusBadRequest)
		return
	}

	// A script naming a device is host-level exclusive: the host won't
	// start a second script subprocess against a device already
	// occupied by one it dispatched. This only guards concurrent script
	// launches from this host — actions/verifications inside the
	// script's own process serialize through the host's request queue
	// per-call, not through this lock.
	var lockKey, sessionID string
	if deviceID := req.Args["device"]; deviceID != "" {
		lockKey = h.deviceKey(deviceID)
		sessionID = uuid.NewString()
		if !h.locks.LockDevice(lockKey, sessionID) {
			http.Error(w, fmt.Sprintf("device %q is busy with another script", deviceID), http.StatusConflict)
			return
		}
	}
	release := func() {
		if lockKey != "" {
			h.locks.UnlockDevice(lockKey, sessionID)
		}
	}

	if req.Async {
		go func() {
			defer release()
			h.runScriptAsync(context.Background(), req)
		}()
		writeJSON(w, map[string]any{"task_id": req.TaskID, "status": "started"})
		return
	}

	defer release()
	resp := h.runScript(r.Context(), req)
	writeJSON(w, resp)
}

func (h *hostServer) runScriptAsync(ctx context.Context, req scriptExecuteRequest) {
	resp := h.runScript(ctx, req)
	if req.TaskID == "" || h.serverCallbackAddr == "" {
		return
	}
	client, err := hostproxy.DialServer(ctx, h.serverCallbackAddr)
	if err != nil {
		logging.Printf(ctx, "host %s: dial server callback: %v", h.hostName, err)
		return
	}
	defer client.Close()

	callback := &hostproxy.TaskCompleteRequest{TaskID: req.TaskID, Result: resp}
	if !resp.Success {
		callback.Error = resp.Error
	}
	if _, err := client.TaskComplete(ctx, callback); err != nil {
		logging.Printf(ctx, "host %s: task %s callback: %v", h.hostName, req.TaskID, err)
	}
}

func (h *hostServer) runScript(ctx context.Context, req scriptExecuteRequest) *scriptExecuteResponse {
	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	binary := filepath.Join(h.scriptsDir, req.ScriptName)
	args := make([]string, 0, len(req.Args))
	for name, value := range req.Args {
		args = append(args, fmt.Sprintf("--%s=%s", name, value))
	}
	args = append(args, "--host="+h.hostName)

	cmd := exec.CommandContext(ctx, binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	resp := &scriptExecuteResponse{Output: out.String()}
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			resp.ExitCode = exitErr.ExitCode()
		} else {
			resp.ExitCode = -1
		}
		return resp
	}
	resp.Success = true
	return resp
}

func (h *hostServer) handleScriptList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.scriptsDir)
	if err != nil {
		http.Error(w, fmt.Sprintf("read scripts dir: %v", err), http.StatusInternalServerError)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	writeJSON(w, map[string]any{"scripts": names})
}

// handleScriptAnalyze runs a script binary with --describe, the
// convention a framework-declared script uses to print its ArgSpec
// list as JSON without executing its body.
func (h *hostServer) handleScriptAnalyze(w http.ResponseWriter, r *http.Request) {
	scriptName := r.URL.Query().Get("script_name")
	if scriptName == "" || strings.ContainsAny(scriptName, "/\\") {
		http.Error(w, "invalid script_name", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	binary := filepath.Join(h.scriptsDir, scriptName)
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "--describe")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		http.Error(w, fmt.Sprintf("analyze %s: %v: %s", scriptName, err, out.String()), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out.Bytes())
}
