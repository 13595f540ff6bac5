package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/virtualpytest/core/internal/campaign"
	"github.com/virtualpytest/core/internal/config"
	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/graph"
	"github.com/virtualpytest/core/internal/hostproxy"
	"github.com/virtualpytest/core/internal/logging"
	"github.com/virtualpytest/core/internal/metrics"
	"github.com/virtualpytest/core/internal/observability"
	"github.com/virtualpytest/core/internal/store"
	"github.com/virtualpytest/core/internal/tasks"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			config.LoadFromEnv(cfg)
			if err := cfg.Validate(false); err != nil {
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

			taskMgr := tasks.New(m)
			hosts := newHostRegistry(cfg.Server.HostAddrs, cfg.Server.HostHTTPAddrs)
			httpClient := &http.Client{Timeout: 5 * time.Minute}

			s := &apiServer{
				store:      pg,
				cache:      cache,
				tasks:      taskMgr,
				hosts:      hosts,
				httpClient: httpClient,
			}

			grpcSrv := grpc.NewServer()
			hostproxy.RegisterCallbackServer(grpcSrv, s)

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
			}
			go func() {
				logging.Printf(ctx, "server: grpc listening on %s", cfg.Server.GRPCAddr)
				if err := grpcSrv.Serve(lis); err != nil {
					logging.Printf(ctx, "server: grpc server stopped: %v", err)
				}
			}()

			go func() {
				ticker := time.NewTicker(10 * time.Minute)
				defer ticker.Stop()
				retention := time.Duration(cfg.Tasks.RetentionMinutes) * time.Minute
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						taskMgr.CleanupOldTasks(retention)
					}
				}
			}()

			mux := http.NewServeMux()
			mux.Handle("GET /metrics", m.Handler())
			mux.HandleFunc("POST /server/validation/run/{tree_id}", s.handleValidationRun)
			mux.HandleFunc("GET /server/validation/status/{task_id}", s.handleTaskStatus)
			mux.HandleFunc("POST /server/script/execute", s.handleScriptExecute)
			mux.HandleFunc("POST /server/script/taskComplete", s.handleTaskCompleteHTTP)
			mux.HandleFunc("GET /server/script/list", s.handleScriptList)
			mux.HandleFunc("GET /server/script/analyze", s.handleScriptAnalyze)
			mux.HandleFunc("GET /server/pathfinding/preview/{tree_id}", s.handlePathfindingPreview)
			mux.HandleFunc("POST /server/campaign/execute", s.handleCampaignExecute)

			httpSrv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: mux}
			go func() {
				logging.Printf(ctx, "server: http listening on %s", cfg.Server.HTTPAddr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logging.Printf(ctx, "server: http server stopped: %v", err)
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
	return cmd
}

// apiServer implements the server's HTTP surface plus the gRPC
// CallbackServer a host uses to complete an async task.
type apiServer struct {
	store      store.Store
	cache      *graph.Cache
	tasks      *tasks.Manager
	hosts      *hostRegistry
	httpClient *http.Client
}

// TaskComplete implements hostproxy.CallbackServer.
func (s *apiServer) TaskComplete(ctx context.Context, req *hostproxy.TaskCompleteRequest) (*hostproxy.TaskCompleteResponse, error) {
	var completionErr error
	if req.Error != "" {
		completionErr = fmt.Errorf("%s", req.Error)
	}
	s.tasks.CompleteTask(req.TaskID, req.Result, completionErr)
	return &hostproxy.TaskCompleteResponse{Acknowledged: true}, nil
}

func (s *apiServer) handleTaskCompleteHTTP(w http.ResponseWriter, r *http.Request) {
	var req hostproxy.TaskCompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, _ := s.TaskComplete(r.Context(), &req)
	writeJSON(w, resp)
}

type validationRunRequest struct {
	Host            string              `json:"host"`
	DeviceID        string              `json:"device_id"`
	EdgesToValidate []validationRunEdge `json:"edges_to_validate"`
}

type validationRunEdge struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}

func (s *apiServer) handleValidationRun(w http.ResponseWriter, r *http.Request) {
	treeID := r.PathValue("tree_id")
	teamID := r.URL.Query().Get("team_id")

	var req validationRunRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	taskID := s.tasks.CreateTask("validation", map[string]any{
		"tree_id": treeID, "host": req.Host, "device_id": req.DeviceID,
	})

	go s.runValidation(context.Background(), taskID, teamID, treeID, req)

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"task_id": taskID, "status": "started"})
}

func (s *apiServer) runValidation(ctx context.Context, taskID, teamID, treeID string, req validationRunRequest) {
	entry, err := s.cache.GetByTreeID(ctx, teamID, treeID)
	if err != nil {
		s.tasks.CompleteTask(taskID, nil, fmt.Errorf("load tree: %w", err))
		return
	}
	client, err := s.hosts.client(ctx, req.Host)
	if err != nil {
		s.tasks.CompleteTask(taskID, nil, err)
		return
	}

	results := make([]*hostproxy.NavigationResponse, 0, len(req.EdgesToValidate))
	failed := 0
	for i, edge := range req.EdgesToValidate {
		resp, err := client.ExecuteNavigation(ctx, &hostproxy.NavigationRequest{
			TeamID: teamID, DeviceID: req.DeviceID, TreeID: treeID,
			CurrentNodeID: edge.FromNode, TargetNodeID: edge.ToNode,
		})
		if err != nil || !resp.Success {
			failed++
		}
		if resp != nil {
			results = append(results, resp)
		}
		s.tasks.UpdateTaskProgress(taskID, map[string]any{
			"completed": i + 1, "total": len(req.EdgesToValidate), "failed": failed,
		})
	}
	_ = entry // entry is resolved up front so a missing tree fails fast before any host call

	var completionErr error
	if failed > 0 {
		completionErr = fmt.Errorf("%d/%d edges failed validation", failed, len(req.EdgesToValidate))
	}
	s.tasks.CompleteTask(taskID, results, completionErr)
}

func (s *apiServer) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	t := s.tasks.GetTask(taskID)
	if t == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t)
}

type scriptExecuteServerRequest struct {
	TeamID     string            `json:"team_id"`
	Host       string            `json:"host"`
	ScriptName string            `json:"script_name"`
	Args       map[string]string `json:"args"`
}

func (s *apiServer) handleScriptExecute(w http.ResponseWriter, r *http.Request) {
	var req scriptExecuteServerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	taskID := s.tasks.CreateTask("script", map[string]any{"script_name": req.ScriptName, "host": req.Host})

	go func() {
		addr, ok := s.hosts.httpAddr(req.Host)
		if !ok {
			s.tasks.CompleteTask(taskID, nil, fmt.Errorf("host %q has no registered http address", req.Host))
			return
		}
		body, _ := json.Marshal(scriptExecuteRequest{ScriptName: req.ScriptName, Args: req.Args, Async: true, TaskID: taskID})
		httpReq, err := http.NewRequest(http.MethodPost, "http://"+addr+"/host/script/execute", strings.NewReader(string(body)))
		if err != nil {
			s.tasks.CompleteTask(taskID, nil, err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := s.httpClient.Do(httpReq)
		if err != nil {
			s.tasks.CompleteTask(taskID, nil, err)
			return
		}
		resp.Body.Close()
		// The host completes the task asynchronously via TaskComplete once
		// the script finishes; nothing more to do on this path.
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"task_id": taskID, "status": "started"})
}

func (s *apiServer) handleScriptList(w http.ResponseWriter, r *http.Request) {
	// Script discovery lives on the host filesystem (scripts_dir); the
	// server has no directory of its own to list without a host target.
	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "host query parameter is required", http.StatusBadRequest)
		return
	}
	addr, ok := s.hosts.httpAddr(host)
	if !ok {
		http.Error(w, fmt.Sprintf("host %q has no registered http address", host), http.StatusNotFound)
		return
	}
	resp, err := s.httpClient.Get("http://" + addr + "/host/script/list")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = writeProxyBody(w, resp)
}

func (s *apiServer) handleScriptAnalyze(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	scriptName := r.URL.Query().Get("script_name")
	if host == "" || scriptName == "" {
		http.Error(w, "host and script_name query parameters are required", http.StatusBadRequest)
		return
	}
	addr, ok := s.hosts.httpAddr(host)
	if !ok {
		http.Error(w, fmt.Sprintf("host %q has no registered http address", host), http.StatusNotFound)
		return
	}
	resp, err := s.httpClient.Get("http://" + addr + "/host/script/analyze?script_name=" + scriptName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = writeProxyBody(w, resp)
}

func (s *apiServer) handlePathfindingPreview(w http.ResponseWriter, r *http.Request) {
	treeID := r.PathValue("tree_id")
	teamID := r.URL.Query().Get("team_id")
	start := r.URL.Query().Get("start")
	target := r.URL.Query().Get("target")

	entry, err := s.cache.GetByTreeID(r.Context(), teamID, treeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	startID, ok := entry.ResolveStart(start)
	if !ok {
		http.Error(w, fmt.Sprintf("start node not found: %q", start), http.StatusBadRequest)
		return
	}

	if target == "" {
		writeJSON(w, map[string]any{"sequence": entry.BuildValidationSequence()})
		return
	}

	path, err := entry.FindShortestPath(startID, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"path": path})
}

type campaignExecuteRequest struct {
	TeamID            string                       `json:"team_id"`
	CampaignName      string                       `json:"campaign_name"`
	UserinterfaceName string                       `json:"userinterface_name"`
	HostName          string                       `json:"host_name"`
	DeviceName        string                       `json:"device_name"`
	ExecutedBy        string                       `json:"executed_by"`
	Policy            domain.ExecutionPolicy       `json:"policy"`
	ScriptConfigs     []domain.ScriptConfiguration `json:"script_configs"`
}

func (s *apiServer) handleCampaignExecute(w http.ResponseWriter, r *http.Request) {
	var req campaignExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	runner := newHostScriptRunner(s.hosts, s.httpClient, req.HostName)
	exec := campaign.New(s.store, runner, nil)

	taskID := s.tasks.CreateTask("campaign", map[string]any{"campaign_name": req.CampaignName})
	go func() {
		camp, err := exec.Execute(context.Background(), campaign.Params{
			TeamID: req.TeamID, CampaignName: req.CampaignName, UserinterfaceName: req.UserinterfaceName,
			HostName: req.HostName, DeviceName: req.DeviceName, ExecutedBy: req.ExecutedBy,
			Policy: req.Policy, ScriptConfigs: req.ScriptConfigs,
		})
		s.tasks.CompleteTask(taskID, camp, err)
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"task_id": taskID, "status": "started"})
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

func writeProxyBody(w http.ResponseWriter, resp *http.Response) (int64, error) {
	return io.Copy(w, resp.Body)
}
