package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/observability"
)

// withSpan wraps a Postgres call with an internal span, recording err
// (if any) on the span before returning it unchanged.
func withSpan(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, name, attrs...)
	defer span.End()
	if err := fn(ctx); err != nil {
		observability.SetSpanError(span, err)
		return err
	}
	observability.SetSpanOK(span)
	return nil
}

// PostgresStore is the reference Store implementation backed by
// Postgres via pgx. Navigation trees, actions and verifications are
// stored as JSONB documents; execution records are narrow relational
// rows so aggregate queries (per-edge pass rate, campaign rollups) stay
// cheap.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool, verifies connectivity, and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres store not initialized")
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS navigation_trees (
			tree_id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			userinterface_name TEXT NOT NULL,
			metadata JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_trees_team_ui ON navigation_trees (team_id, userinterface_name)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verifications (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edge_executions (
			id BIGSERIAL PRIMARY KEY,
			team_id TEXT NOT NULL,
			tree_id TEXT NOT NULL,
			edge_id TEXT NOT NULL,
			host_name TEXT NOT NULL,
			device_model TEXT,
			success BOOLEAN NOT NULL,
			execution_time_ms BIGINT NOT NULL,
			message TEXT,
			error_details TEXT,
			script_result_id TEXT,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS node_executions (
			id BIGSERIAL PRIMARY KEY,
			team_id TEXT NOT NULL,
			tree_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			host_name TEXT NOT NULL,
			device_model TEXT,
			success BOOLEAN NOT NULL,
			execution_time_ms BIGINT NOT NULL,
			message TEXT,
			script_result_id TEXT,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS script_results (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			script_name TEXT NOT NULL,
			userinterface_name TEXT,
			host_name TEXT,
			device_name TEXT,
			success BOOLEAN NOT NULL,
			error_message TEXT,
			duration_ms BIGINT NOT NULL,
			report_url TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_script_results_lookup ON script_results (team_id, script_name, started_at)`,
		`CREATE TABLE IF NOT EXISTS campaign_executions (
			campaign_execution_id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetTree(ctx context.Context, teamID, treeID string) (tree *domain.Tree, err error) {
	err = withSpan(ctx, "postgres.GetTree", []attribute.KeyValue{
		observability.AttrTeamID.String(teamID), observability.AttrTreeID.String(treeID),
	}, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `SELECT tree_id, team_id, name, userinterface_name, metadata, updated_at
			FROM navigation_trees WHERE tree_id = $1 AND team_id = $2`, treeID, teamID)
		var scanErr error
		tree, scanErr = scanTree(row)
		return scanErr
	})
	return tree, err
}

func (s *PostgresStore) GetTreeByName(ctx context.Context, teamID, userinterfaceName string) (*domain.Tree, error) {
	row := s.pool.QueryRow(ctx, `SELECT tree_id, team_id, name, userinterface_name, metadata, updated_at
		FROM navigation_trees WHERE team_id = $1 AND userinterface_name = $2`, teamID, userinterfaceName)
	return scanTree(row)
}

func scanTree(row pgx.Row) (*domain.Tree, error) {
	var t domain.Tree
	var meta []byte
	if err := row.Scan(&t.TreeID, &t.TeamID, &t.Name, &t.UserinterfaceName, &meta, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("tree not found: %w", err)
		}
		return nil, fmt.Errorf("scan tree: %w", err)
	}
	if err := json.Unmarshal(meta, &t.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal tree metadata: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) SaveTree(ctx context.Context, tree *domain.Tree) error {
	return withSpan(ctx, "postgres.SaveTree", []attribute.KeyValue{
		observability.AttrTeamID.String(tree.TeamID), observability.AttrTreeID.String(tree.TreeID),
	}, func(ctx context.Context) error {
		meta, err := json.Marshal(tree.Metadata)
		if err != nil {
			return fmt.Errorf("marshal tree metadata: %w", err)
		}
		_, err = s.pool.Exec(ctx, `INSERT INTO navigation_trees (tree_id, team_id, name, userinterface_name, metadata, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tree_id) DO UPDATE SET metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at,
				name = EXCLUDED.name, userinterface_name = EXCLUDED.userinterface_name`,
			tree.TreeID, tree.TeamID, tree.Name, tree.UserinterfaceName, meta, time.Now())
		if err != nil {
			return fmt.Errorf("save tree: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetActions(ctx context.Context, teamID string, ids []string) (map[string]*domain.Action, error) {
	out := make(map[string]*domain.Action, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM actions WHERE team_id = $1 AND id = ANY($2)`, teamID, ids)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		var a domain.Action
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal action %s: %w", id, err)
		}
		out[id] = &a
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetVerifications(ctx context.Context, teamID string, ids []string) (map[string]*domain.Verification, error) {
	out := make(map[string]*domain.Verification, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM verifications WHERE team_id = $1 AND id = ANY($2)`, teamID, ids)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		var v domain.Verification
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal verification %s: %w", id, err)
		}
		out[id] = &v
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordEdgeExecution(ctx context.Context, rec *EdgeExecutionRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	return withSpan(ctx, "postgres.RecordEdgeExecution", []attribute.KeyValue{
		observability.AttrTeamID.String(rec.TeamID), observability.AttrEdgeID.String(rec.EdgeID),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `INSERT INTO edge_executions
			(team_id, tree_id, edge_id, host_name, device_model, success, execution_time_ms, message, error_details, script_result_id, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			rec.TeamID, rec.TreeID, rec.EdgeID, rec.HostName, rec.DeviceModel, rec.Success,
			rec.ExecutionTimeMS, rec.Message, rec.ErrorDetails, rec.ScriptResultID, rec.RecordedAt)
		if err != nil {
			return fmt.Errorf("record edge execution: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) RecordNodeExecution(ctx context.Context, rec *NodeExecutionRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	return withSpan(ctx, "postgres.RecordNodeExecution", []attribute.KeyValue{
		observability.AttrTeamID.String(rec.TeamID), observability.AttrNodeID.String(rec.NodeID),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `INSERT INTO node_executions
			(team_id, tree_id, node_id, host_name, device_model, success, execution_time_ms, message, script_result_id, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			rec.TeamID, rec.TreeID, rec.NodeID, rec.HostName, rec.DeviceModel, rec.Success,
			rec.ExecutionTimeMS, rec.Message, rec.ScriptResultID, rec.RecordedAt)
		if err != nil {
			return fmt.Errorf("record node execution: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) RecordScriptResult(ctx context.Context, rec *ScriptResultRecord) (string, error) {
	err := withSpan(ctx, "postgres.RecordScriptResult", []attribute.KeyValue{
		observability.AttrTeamID.String(rec.TeamID), observability.AttrScriptResult.String(rec.ID),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `INSERT INTO script_results
			(id, team_id, script_name, userinterface_name, host_name, device_name, success, error_message, duration_ms, report_url, started_at, completed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			rec.ID, rec.TeamID, rec.ScriptName, rec.UserinterfaceName, rec.HostName, rec.DeviceName,
			rec.Success, rec.ErrorMessage, rec.DurationMS, rec.ReportURL, rec.StartedAt, rec.CompletedAt)
		if err != nil {
			return fmt.Errorf("record script result: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *PostgresStore) UpdateScriptResult(ctx context.Context, id string, success bool, errorMessage string, durationMS int64, reportURL string, completedAt time.Time) error {
	return withSpan(ctx, "postgres.UpdateScriptResult", []attribute.KeyValue{
		observability.AttrScriptResult.String(id),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `UPDATE script_results
			SET success = $2, error_message = $3, duration_ms = $4, report_url = $5, completed_at = $6
			WHERE id = $1`,
			id, success, errorMessage, durationMS, reportURL, completedAt)
		if err != nil {
			return fmt.Errorf("update script result: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FindRecentScriptResult(ctx context.Context, teamID, scriptName string, after, before time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT id FROM script_results
		WHERE team_id = $1 AND script_name = $2 AND started_at BETWEEN $3 AND $4
		ORDER BY started_at DESC LIMIT 1`, teamID, scriptName, after, before)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("find recent script result: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) RecordCampaignStart(ctx context.Context, camp *domain.CampaignExecution) (string, error) {
	err := withSpan(ctx, "postgres.RecordCampaignStart", []attribute.KeyValue{
		observability.AttrTeamID.String(camp.TeamID),
	}, func(ctx context.Context) error {
		data, err := json.Marshal(camp)
		if err != nil {
			return fmt.Errorf("marshal campaign: %w", err)
		}
		_, err = s.pool.Exec(ctx, `INSERT INTO campaign_executions (campaign_execution_id, team_id, data, updated_at)
			VALUES ($1,$2,$3,$4)`, camp.CampaignExecutionID, camp.TeamID, data, time.Now())
		if err != nil {
			return fmt.Errorf("record campaign start: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return camp.CampaignExecutionID, nil
}

// AppendCampaignScriptResult appends a child script result id to the
// campaign's array idempotently: re-appending the same id is a no-op
// rather than a duplicate entry.
func (s *PostgresStore) AppendCampaignScriptResult(ctx context.Context, campaignExecutionID, scriptResultID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE campaign_executions
		SET data = jsonb_set(
			data,
			'{script_result_ids}',
			COALESCE(data->'script_result_ids', '[]'::jsonb) || to_jsonb($2::text)
		), updated_at = $3
		WHERE campaign_execution_id = $1
		  AND NOT (COALESCE(data->'script_result_ids', '[]'::jsonb) @> to_jsonb($2::text))`,
		campaignExecutionID, scriptResultID, time.Now())
	if err != nil {
		return fmt.Errorf("append campaign script result: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateCampaignResult(ctx context.Context, campaignExecutionID string, status domain.CampaignStatus, successful, failed int, success bool, reportURL string, durationMS int64) error {
	return withSpan(ctx, "postgres.UpdateCampaignResult", []attribute.KeyValue{
		observability.AttrCampaignID.String(campaignExecutionID),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `UPDATE campaign_executions
			SET data = data || jsonb_build_object(
				'status', $2::text,
				'successful_scripts', $3::int,
				'failed_scripts', $4::int,
				'success', $5::bool,
				'report_url', $6::text,
				'duration_ms', $7::bigint
			), updated_at = $8
			WHERE campaign_execution_id = $1`,
			campaignExecutionID, string(status), successful, failed, success, reportURL, durationMS, time.Now())
		if err != nil {
			return fmt.Errorf("update campaign result: %w", err)
		}
		return nil
	})
}
