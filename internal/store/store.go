// Package store defines the persistence operations the execution core
// needs from the injected store. The core never opens a database
// connection itself: route handlers construct a concrete Store (see
// PostgresStore in postgres.go) and pass it down to the orchestrator and its
// executors.
package store

import (
	"context"
	"time"

	"github.com/virtualpytest/core/internal/domain"
)

// ScriptContext carries the identifying fields every execution record
// write needs, threaded through from the domain.ExecutionContext so
// executors don't reach into it directly.
type ScriptContext struct {
	ScriptResultID string
	Host           string
	DeviceModel    string
}

// TreeStore loads persisted trees and the actions/verifications they
// reference, and is invalidated on save.
type TreeStore interface {
	// GetTree loads a tree by id, scoped to a team.
	GetTree(ctx context.Context, teamID, treeID string) (*domain.Tree, error)
	// GetTreeByName resolves a tree by its userinterface name, scoped
	// to a team. Used by the harness to bootstrap a script's context.
	GetTreeByName(ctx context.Context, teamID, userinterfaceName string) (*domain.Tree, error)
	// SaveTree persists a tree and must be followed by cache
	// invalidation by the caller (the store itself does not know about
	// the graph cache).
	SaveTree(ctx context.Context, tree *domain.Tree) error

	// GetActions bulk-loads actions by id, scoped to a team. Missing
	// ids are simply absent from the returned map: best effort, no error.
	GetActions(ctx context.Context, teamID string, ids []string) (map[string]*domain.Action, error)
	// GetVerifications bulk-loads verifications by id, scoped to a team.
	GetVerifications(ctx context.Context, teamID string, ids []string) (map[string]*domain.Verification, error)
}

// ExecutionStore records the outcome of individual edge and node
// executions, and of whole script and campaign runs.
type ExecutionStore interface {
	RecordEdgeExecution(ctx context.Context, rec *EdgeExecutionRecord) error
	RecordNodeExecution(ctx context.Context, rec *NodeExecutionRecord) error

	RecordScriptResult(ctx context.Context, rec *ScriptResultRecord) (string, error)
	// UpdateScriptResult finalizes a script_results row created at the
	// start of a run (harness.Harness.Run pre-records a row so edge and
	// node execution records can carry its id) once the outcome is known.
	UpdateScriptResult(ctx context.Context, id string, success bool, errorMessage string, durationMS int64, reportURL string, completedAt time.Time) error
	// FindRecentScriptResult looks up a script result by name, team and
	// a time window, used by the campaign executor to link a child
	// script run it did not itself create.
	FindRecentScriptResult(ctx context.Context, teamID, scriptName string, after, before time.Time) (string, error)

	RecordCampaignStart(ctx context.Context, camp *domain.CampaignExecution) (string, error)
	AppendCampaignScriptResult(ctx context.Context, campaignExecutionID, scriptResultID string) error
	UpdateCampaignResult(ctx context.Context, campaignExecutionID string, status domain.CampaignStatus, successful, failed int, success bool, reportURL string, durationMS int64) error
}

// Store is the full persistence surface the core depends on. Route
// handlers, not this package, are responsible for wiring a concrete
// implementation (PostgresStore satisfies it).
type Store interface {
	TreeStore
	ExecutionStore
	Ping(ctx context.Context) error
	Close() error
}

// EdgeExecutionRecord is one row recorded per action-list execution
// attempt across an edge.
type EdgeExecutionRecord struct {
	TeamID          string
	TreeID          string
	EdgeID          string
	HostName        string
	DeviceModel     string
	Success         bool
	ExecutionTimeMS int64
	Message         string
	ErrorDetails    string
	ScriptResultID  string
	ScriptContext   *ScriptContext
	RecordedAt      time.Time
}

// NodeExecutionRecord is one row recorded per verification-list
// execution at a node.
type NodeExecutionRecord struct {
	TeamID          string
	TreeID          string
	NodeID          string
	HostName        string
	DeviceModel     string
	Success         bool
	ExecutionTimeMS int64
	Message         string
	ScriptResultID  string
	ScriptContext   *ScriptContext
	RecordedAt      time.Time
}

// ScriptResultRecord is the final record a script execution harness
// writes regardless of outcome.
type ScriptResultRecord struct {
	ID                string
	TeamID            string
	ScriptName        string
	UserinterfaceName string
	HostName          string
	DeviceName        string
	Success           bool
	ErrorMessage      string
	DurationMS        int64
	ReportURL         string
	StartedAt         time.Time
	CompletedAt       time.Time
}
