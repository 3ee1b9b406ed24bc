// Package postgres implements the graph and execution stores on
// PostgreSQL. Graphs and results are stored as JSONB documents, which
// keeps the schema stable while the node and edge shapes evolve.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/ports"
)

// Store implements ports.GraphStore and ports.ExecutionStore on one
// Postgres connection.
type Store struct {
	db *sql.DB
}

var (
	_ ports.GraphStore     = (*Store)(nil)
	_ ports.ExecutionStore = (*Store)(nil)
)

// New connects using the standard PG* environment variables and
// creates the tables when missing.
func New() (*Store, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "lattice")
	dbname := getEnv("PGDATABASE", "lattice")
	password := os.Getenv("PGPASSWORD")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if password != "" {
		connStr += " password=" + password
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// NewFromDB wraps an existing connection, creating tables when missing.
func NewFromDB(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *Store) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS graphs (
			graph_id   TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			definition JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_graphs_name ON graphs(name);

		CREATE TABLE IF NOT EXISTS executions (
			execution_id TEXT PRIMARY KEY,
			graph_id     TEXT NOT NULL,
			result       JSONB NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_graph_id ON executions(graph_id, started_at DESC);
	`
	_, err := s.db.Exec(query)
	return err
}

// Save persists a graph, overwriting any previous version.
func (s *Store) Save(ctx context.Context, g *graph.Graph) error {
	definition, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	query := `
		INSERT INTO graphs (graph_id, name, definition, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (graph_id) DO UPDATE
		SET name = EXCLUDED.name, definition = EXCLUDED.definition, updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, g.ID, g.Name, definition)
	return err
}

// Load retrieves a graph by ID.
func (s *Store) Load(ctx context.Context, id string) (*graph.Graph, error) {
	return s.loadWhere(ctx, "graph_id = $1", id)
}

// Resolve retrieves a graph by ID or, failing that, by exact name.
func (s *Store) Resolve(ctx context.Context, idOrName string) (*graph.Graph, error) {
	g, err := s.Load(ctx, idOrName)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ports.ErrGraphNotFound) {
		return nil, err
	}
	return s.loadWhere(ctx, "name = $1", idOrName)
}

func (s *Store) loadWhere(ctx context.Context, clause string, arg any) (*graph.Graph, error) {
	var definition []byte
	query := "SELECT definition FROM graphs WHERE " + clause + " LIMIT 1"
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&definition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrGraphNotFound
		}
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}

	var g graph.Graph
	if err := json.Unmarshal(definition, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &g, nil
}

// List returns all stored graphs.
func (s *Store) List(ctx context.Context) ([]*graph.Graph, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT definition FROM graphs ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	var graphs []*graph.Graph
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, err
		}
		var g graph.Graph
		if err := json.Unmarshal(definition, &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
		graphs = append(graphs, &g)
	}
	return graphs, rows.Err()
}

// Delete removes a graph by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM graphs WHERE graph_id = $1", id)
	return err
}

// Record persists one execution result.
func (s *Store) Record(ctx context.Context, result engine.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO executions (execution_id, graph_id, result, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (execution_id) DO UPDATE SET result = EXCLUDED.result
	`
	_, err = s.db.ExecContext(ctx, query, result.ExecutionID, result.GraphID, payload, result.StartedAt)
	return err
}

// Get retrieves a result by execution ID.
func (s *Store) Get(ctx context.Context, executionID string) (engine.Result, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM executions WHERE execution_id = $1", executionID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Result{}, ports.ErrExecutionNotFound
		}
		return engine.Result{}, fmt.Errorf("failed to query execution: %w", err)
	}

	var result engine.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return engine.Result{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// ListByGraph returns recorded results for one graph, newest first.
func (s *Store) ListByGraph(ctx context.Context, graphID string) ([]engine.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT result FROM executions WHERE graph_id = $1 ORDER BY started_at DESC", graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var results []engine.Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var result engine.Result
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
