// Package execblock implements the standard block executor and
// registry of. Unlike action/verification executors, blocks
// are not tied to navigation edges: they are named, self-describing
// functions (sleep, evaluate, get-menu-info, …) registered at startup
// and invoked by command name.
package execblock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ParamDescriptor documents one typed parameter a block accepts, the Go
// analogue of the source's per-parameter metadata.
type ParamDescriptor struct {
	Name     string
	Type     string // "string", "int", "bool", "float", "object"
	Required bool
	Default  any
}

// Info is the metadata a block exposes about itself, returned by
// get_block_info() in the source.
type Info struct {
	Command     string
	Description string
	Params      []ParamDescriptor
}

// Result is the outcome of running a block.
type Result struct {
	Success bool
	Message string
	Extra   map[string]any
}

// BlockFunc is the signature every registered block implements.
type BlockFunc func(ctx context.Context, params map[string]any) (*Result, error)

// Block pairs a block's metadata with its implementation.
type Block struct {
	Info Info
	Run  BlockFunc
}

// Registry is the block discovery cache of: populated once
// at startup (standing in for scanning blocks/ and custom_blocks/
// directories) and consulted by command name thereafter.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]*Block
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]*Block)}
}

// Register adds a block to the registry, overwriting any prior
// registration under the same command name — the last registrar wins,
// matching how custom_blocks/ is meant to shadow blocks/ in the source.
func (r *Registry) Register(b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[b.Info.Command] = b
}

// AvailableCommands lists every registered command name.
func (r *Registry) AvailableCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.blocks))
	for cmd := range r.blocks {
		out = append(out, cmd)
	}
	return out
}

// Execute runs a block synchronously, as the request goroutine does for
// short operations.
func (r *Registry) Execute(ctx context.Context, command string, params map[string]any) (*Result, error) {
	r.mu.RLock()
	b, ok := r.blocks[command]
	r.mu.RUnlock()
	if !ok {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("unknown block command: %s", command),
			Extra:   map[string]any{"available_blocks": r.AvailableCommands()},
		}, nil
	}
	return b.Run(ctx, params)
}

// AsyncStatus is the lifecycle of a background block execution.
type AsyncStatus string

const (
	AsyncRunning   AsyncStatus = "running"
	AsyncCompleted AsyncStatus = "completed"
	AsyncFailed    AsyncStatus = "failed"
)

// AsyncRecord is what GET /host/builder/execution/<id>/status returns.
type AsyncRecord struct {
	ExecutionID string
	Status      AsyncStatus
	StartTime   time.Time
	Progress    any
	Result      *Result
	Error       string
}

// AsyncExecutor tracks long-running block executions launched in the
// background, keyed by a generated execution id.
type AsyncExecutor struct {
	registry *Registry

	mu      sync.Mutex
	records map[string]*AsyncRecord
}

// NewAsyncExecutor returns an AsyncExecutor backed by registry.
func NewAsyncExecutor(registry *Registry) *AsyncExecutor {
	return &AsyncExecutor{registry: registry, records: make(map[string]*AsyncRecord)}
}

// StartAsync generates an execution id, launches the block in a
// goroutine, and returns the id immediately.
func (a *AsyncExecutor) StartAsync(ctx context.Context, command string, params map[string]any) string {
	id := uuid.NewString()
	a.mu.Lock()
	a.records[id] = &AsyncRecord{ExecutionID: id, Status: AsyncRunning, StartTime: time.Now()}
	a.mu.Unlock()

	go func() {
		res, err := a.registry.Execute(context.WithoutCancel(ctx), command, params)
		a.mu.Lock()
		defer a.mu.Unlock()
		rec := a.records[id]
		if rec == nil {
			return
		}
		if err != nil {
			rec.Status = AsyncFailed
			rec.Error = err.Error()
			return
		}
		rec.Status = AsyncCompleted
		rec.Result = res
	}()
	return id
}

// UpdateProgress is called by a long-running block to report progress
// while it executes.
func (a *AsyncExecutor) UpdateProgress(executionID string, progress any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.records[executionID]; ok {
		rec.Progress = progress
	}
}

// Status returns a copy of the execution record, or nil if unknown.
func (a *AsyncExecutor) Status(executionID string) *AsyncRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[executionID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}
