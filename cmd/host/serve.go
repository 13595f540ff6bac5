package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/virtualpytest/core/internal/config"
	"github.com/virtualpytest/core/internal/controller"
	"github.com/virtualpytest/core/internal/devicelock"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/execaction"
	"github.com/virtualpytest/core/internal/execblock"
	"github.com/virtualpytest/core/internal/execverify"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/hostproxy"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/navexec"
	"github.com/virtualpytest/core/internal/observability"
	"github.com/virtualpytest/core/internal/orchestrator"
	"github.com/virtualpytest/core/internal/store"
)

func serveCmd() *cobra.Command {
	var grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host execution surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			config.LoadFromEnv(cfg)
			if cmd.Flags().Changed("grpc") {
				cfg.Host.GRPCAddr = grpcAddr
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := observability.Init(ctx, observability.Config{
				Enabled:     cfg.Observability.Tracing.Enabled,
				Endpoint:    cfg.Observability.Tracing.Endpoint,
				ServiceName: cfg.Observability.Tracing.ServiceName,
				SampleRate:  cfg.Observability.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			m := metrics.New(cfg.Observability.Metrics.Namespace)

			pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			defer pg.Close()

			cache := graph.NewCache(pg)
			cache.SetMaxAge(cfg.Cache.MaxAge)

			// Device controllers are host-specific backends (ADB, Appium, AV
			// capture, remote codes) registered by the deployment, not by
			// this package — see controller.Registry.Register.
			controllers := controller.NewRegistry()
			locks := devicelock.New(m)

			actions := execaction.New(controllers, pg, m)
			verifications := execverify.New(controllers, pg, m)
			blocks := execblock.NewRegistry()
			asyncBlocks := execblock.NewAsyncExecutor(blocks)
			nav := navexec.New(cache, actions, verifications, m)
			orch := orchestrator.New(actions, verifications, blocks, nav)

			h := &hostServer{orch: orch, locks: locks, asyncBlocks: asyncBlocks, hostName: cfg.Host.Name}

			grpcSrv := grpc.NewServer()
			hostproxy.RegisterHostExecutorServer(grpcSrv, h)

			lis, err := net.Listen("tcp", cfg.Host.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen grpc %s: %w", cfg.Host.GRPCAddr, err)
			}
			go func() {
				logging.Printf(ctx, "host %s: grpc listening on %s", cfg.Host.Name, cfg.Host.GRPCAddr)
				if err := grpcSrv.Serve(lis); err != nil {
					logging.Printf(ctx, "host %s: grpc server stopped: %v", cfg.Host.Name, err)
				}
			}()

			h.scriptsDir = cfg.Host.ScriptsDir
			h.serverCallbackAddr = cfg.Server.GRPCAddr

			mux := http.NewServeMux()
			mux.Handle("GET /metrics", m.Handler())
			mux.HandleFunc("POST /host/action/executeBatch", h.handleActionBatch)
			mux.HandleFunc("POST /execute/navigation", h.handleNavigation)
			mux.HandleFunc("POST /execute/verifications", h.handleVerifications)
			mux.HandleFunc("POST /execute/blocks", h.handleBlocks)
			mux.HandleFunc("POST /host/builder/execute", h.handleBuilderExecute)
			mux.HandleFunc("GET /host/builder/execution/{id}/status", h.handleBuilderStatus)
			mux.HandleFunc("POST /host/script/execute", h.handleScriptExecute)
			mux.HandleFunc("GET /host/script/list", h.handleScriptList)
			mux.HandleFunc("GET /host/script/analyze", h.handleScriptAnalyze)
			mux.HandleFunc("POST /host/verification/image/execute", h.handleTypedVerification(domain.VerificationTypeImage))
			mux.HandleFunc("POST /host/verification/text/execute", h.handleTypedVerification(domain.VerificationTypeText))
			mux.HandleFunc("POST /host/verification/adb/execute", h.handleTypedVerification(domain.VerificationTypeADB))
			mux.HandleFunc("POST /host/verification/appium/execute", h.handleTypedVerification(domain.VerificationTypeAppium))
			mux.HandleFunc("POST /host/verification/audio/execute", h.handleTypedVerification(domain.VerificationTypeAudio))
			mux.HandleFunc("POST /host/verification/video/execute", h.handleTypedVerification(domain.VerificationTypeVideo))

			httpSrv := &http.Server{Addr: cfg.Host.HTTPAddr, Handler: mux}
			go func() {
				logging.Printf(ctx, "host %s: http listening on %s", cfg.Host.Name, cfg.Host.HTTPAddr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logging.Printf(ctx, "host %s: http server stopped: %v", cfg.Host.Name, err)
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
			grpcSrv.GracefulStop()
			return nil
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC listen address, overrides VPT_HOST_GRPC_ADDR")
	return cmd
}

// hostServer adapts the orchestrator to the hostproxy wire types and to
// plain HTTP handlers for the same operations.
type hostServer struct {
	orch               *orchestrator.Orchestrator
	locks              *devicelock.Coordinator
	asyncBlocks        *execblock.AsyncExecutor
	hostName           string
	scriptsDir         string
	serverCallbackAddr string
}

func (h *hostServer) deviceKey(deviceID string) string {
	return h.hostName + ":" + deviceID
}

func (h *hostServer) ExecuteActions(ctx context.Context, req *hostproxy.ActionBatchRequest) (*hostproxy.ActionBatchResponse, error) {
	env := h.orch.ExecuteActions(ctx, execaction.Params{
		TeamID: req.TeamID, DeviceKey: h.deviceKey(req.DeviceID), HostName: h.hostName,
	}, req.Actions, req.RetryActions, req.FailureActions)
	result, _ := env.Result.(*domain.ActionBatchResult)
	if result == nil {
		return &hostproxy.ActionBatchResponse{Success: env.Success}, nil
	}
	return &hostproxy.ActionBatchResponse{
		Success: env.Success, Results: result.Results, PassedCount: result.PassedCount, TotalCount: result.TotalCount,
	}, nil
}

func (h *hostServer) ExecuteVerifications(ctx context.Context, req *hostproxy.VerificationBatchRequest) (*hostproxy.VerificationBatchResponse, error) {
	env := h.orch.ExecuteVerifications(ctx, execverify.Params{
		TeamID: req.TeamID, UserinterfaceName: req.UserinterfaceName, ImageSourceURL: req.ImageSourceURL,
		TreeID: req.TreeID, NodeID: req.NodeID, DeviceKey: h.deviceKey(req.DeviceID), HostName: h.hostName,
		PassCondition: req.VerificationPassCondition, StrictParams: req.StrictParams,
	}, req.Verifications)
	result, _ := env.Result.(*domain.VerificationBatchResult)
	if result == nil {
		return &hostproxy.VerificationBatchResponse{Success: env.Success}, nil
	}
	return &hostproxy.VerificationBatchResponse{
		Success: env.Success, Results: result.Results, PassedCount: result.PassedCount,
		FailedCount: result.FailedCount, TotalCount: result.TotalCount, Message: result.Message,
	}, nil
}

func (h *hostServer) ExecuteNavigation(ctx context.Context, req *hostproxy.NavigationRequest) (*hostproxy.NavigationResponse, error) {
	env := h.orch.ExecuteNavigation(ctx, navexec.Request{
		TreeID: req.TreeID, UserinterfaceName: req.UserinterfaceName, TeamID: req.TeamID,
		TargetNodeID: req.TargetNodeID, TargetNodeLabel: req.TargetNodeLabel, CurrentNodeID: req.CurrentNodeID,
		ImageSourceURL: req.ImageSourceURL, DeviceKey: h.deviceKey(req.DeviceID), HostName: h.hostName,
	})
	result, _ := env.Result.(*navexec.Result)
	if result == nil {
		result = &navexec.Result{Success: false, Error: "navigation produced no result"}
	}
	return &hostproxy.NavigationResponse{
		Success: result.Success, TransitionsExecuted: result.TransitionsExecuted, TotalTransitions: result.TotalTransitions,
		ActionsExecuted: result.ActionsExecuted, TotalActions: result.TotalActions, ExecutionTimeMS: result.ExecutionTimeMS,
		VerificationResults: result.VerificationResults, NavigationPath: result.NavigationPath,
		FinalPositionNodeID: result.FinalPositionNodeID, Error: result.Error, Logs: env.Logs,
	}, nil
}

func (h *hostServer) ExecuteBlocks(ctx context.Context, req *hostproxy.BlockRequest) (*hostproxy.BlockResponse, error) {
	env := h.orch.ExecuteBlocks(ctx, req.Command, req.Params)
	result, _ := env.Result.(*execblock.Result)
	if result == nil {
		return &hostproxy.BlockResponse{Success: env.Success, Logs: env.Logs}, nil
	}
	return &hostproxy.BlockResponse{Success: result.Success, Message: result.Message, Extra: result.Extra, Logs: env.Logs}, nil
}

func (h *hostServer) handleActionBatch(w http.ResponseWriter, r *http.Request) {
	var req hostproxy.ActionBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, _ := h.ExecuteActions(r.Context(), &req)
	writeJSON(w, resp)
}

func (h *hostServer) handleNavigation(w http.ResponseWriter, r *http.Request) {
	var req hostproxy.NavigationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, _ := h.ExecuteNavigation(r.Context(), &req)
	writeJSON(w, resp)
}

func (h *hostServer) handleVerifications(w http.ResponseWriter, r *http.Request) {
	var req hostproxy.VerificationBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, _ := h.ExecuteVerifications(r.Context(), &req)
	writeJSON(w, resp)
}

func (h *hostServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	var req hostproxy.BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, _ := h.ExecuteBlocks(r.Context(), &req)
	writeJSON(w, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("malformed request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
