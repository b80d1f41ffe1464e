//go:build cgo

package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// LadybugDriverConfig holds configuration options for LadybugDriver
type LadybugDriverConfig struct {
	// Database path (defaults to ":memory:")
	DBPath string

	// Maximum threads used by a query (defaults to 1)
	MaxConcurrentQueries int

	// Buffer pool size in bytes (defaults to 1GB)
	BufferPoolSize uint64

	// Enable compression (defaults to true)
	EnableCompression bool

	// Maximum database size in bytes (defaults to 8TB)
	MaxDbSize uint64

	Logger *slog.Logger
}

// DefaultLadybugDriverConfig returns a LadybugDriverConfig with sensible defaults
func DefaultLadybugDriverConfig() *LadybugDriverConfig {
	return &LadybugDriverConfig{
		DBPath:               ":memory:",
		MaxConcurrentQueries: 1,
		BufferPoolSize:       1024 * 1024 * 1024, // 1GB
		EnableCompression:    true,
		MaxDbSize:            1 << 43, // 8TB
	}
}

// LadybugDriver stores graphs in an embedded Ladybug database. The
// underlying library is not thread-safe, so every statement holds mu.
type LadybugDriver struct {
	db     *ladybug.Database
	conn   *ladybug.Connection
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

var _ GraphDriver = (*LadybugDriver)(nil)

// NewLadybugDriver opens the database at path, or an in-memory one when
// path is empty.
func NewLadybugDriver(path string, logger *slog.Logger) (*LadybugDriver, error) {
	cfg := DefaultLadybugDriverConfig()
	if path != "" {
		cfg.DBPath = path
	}
	cfg.Logger = logger
	return NewLadybugDriverWithConfig(cfg)
}

// NewLadybugDriverWithConfig opens a database and creates the schema. A
// corrupt write-ahead log is moved aside and the open is retried once.
func NewLadybugDriverWithConfig(config *LadybugDriverConfig) (*LadybugDriver, error) {
	if config == nil {
		config = DefaultLadybugDriverConfig()
	}
	if config.DBPath == "" {
		config.DBPath = ":memory:"
	}
	if config.MaxConcurrentQueries <= 0 {
		config.MaxConcurrentQueries = 1
	}
	if config.BufferPoolSize == 0 {
		config.BufferPoolSize = 1024 * 1024 * 1024
	}
	if config.MaxDbSize == 0 {
		config.MaxDbSize = 1 << 43
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Create a SystemConfig manually to avoid version mismatch issues with DefaultSystemConfig()
	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    config.BufferPoolSize,
		MaxNumThreads:     uint64(config.MaxConcurrentQueries),
		EnableCompression: config.EnableCompression,
		ReadOnly:          false,
		MaxDbSize:         config.MaxDbSize,
	}

	database, err := ladybug.OpenDatabase(config.DBPath, systemConfig)
	if err != nil {
		if config.DBPath == ":memory:" {
			return nil, fmt.Errorf("failed to open ladybug database: %w", err)
		}
		walPath := config.DBPath + ".wal"
		if _, statErr := os.Stat(walPath); statErr != nil {
			return nil, fmt.Errorf("failed to open ladybug database: %w", err)
		}
		backupPath := fmt.Sprintf("%s.%d.corrupt", walPath, time.Now().UnixNano())
		logger.Warn("failed to open ladybug database, moving WAL aside", "error", err, "wal", walPath, "backup", backupPath)
		if moveErr := os.Rename(walPath, backupPath); moveErr != nil {
			return nil, fmt.Errorf("failed to open ladybug database and failed to move WAL: %v (orig err: %w)", moveErr, err)
		}
		database, err = ladybug.OpenDatabase(config.DBPath, systemConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open ladybug database after WAL recovery attempt: %w", err)
		}
	}

	conn, err := ladybug.OpenConnection(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	d := &LadybugDriver{db: database, conn: conn, logger: logger}
	for _, query := range GetIndexQueries(GraphProviderLadybug) {
		if _, err := d.exec(query, nil); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create ladybug schema: %w", err)
		}
	}
	return d, nil
}

// exec runs one statement and returns its rows keyed by column name.
// Callers hold d.mu.
func (d *LadybugDriver) exec(query string, params map[string]any) ([]map[string]any, error) {
	var (
		results *ladybug.QueryResult
		err     error
	)
	if len(params) > 0 {
		stmt, prepErr := d.conn.Prepare(query)
		if prepErr != nil {
			return nil, fmt.Errorf("prepare ladybug query: %w", prepErr)
		}
		results, err = d.conn.Execute(stmt, params)
	} else {
		results, err = d.conn.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer results.Close()

	columnNames := results.GetColumnNames()
	rows := []map[string]any{}
	for results.HasNext() {
		row, err := results.Next()
		if err != nil {
			return nil, err
		}
		values, err := row.GetAsSlice()
		if err != nil {
			return nil, err
		}
		dict := make(map[string]any, len(values))
		for i, value := range values {
			if i < len(columnNames) {
				dict[columnNames[i]] = value
			}
		}
		rows = append(rows, dict)
	}
	return rows, nil
}

// inTransaction runs fn between BEGIN and COMMIT, rolling back on error.
func (d *LadybugDriver) inTransaction(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("driver is closed")
	}

	if _, err := d.exec("BEGIN TRANSACTION;", nil); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rbErr := d.exec("ROLLBACK;", nil); rbErr != nil {
			d.logger.Error("ladybug rollback failed", "error", rbErr)
		}
		return err
	}
	_, err := d.exec("COMMIT;", nil)
	return err
}

// SaveGraph implements GraphDriver.
func (d *LadybugDriver) SaveGraph(ctx context.Context, g *types.Graph) error {
	if err := ValidateGraphID(g.ID); err != nil {
		return err
	}
	header, concepts, relates, err := graphRows(g)
	if err != nil {
		return err
	}

	err = d.inTransaction(func() error {
		params := map[string]any{"graph_id": g.ID}
		if _, err := d.exec(deleteConceptsQuery, params); err != nil {
			return err
		}
		if _, err := d.exec(upsertHeaderQuery, map[string]any{
			"graph_id":   g.ID,
			"header":     header,
			"created_at": formatTime(g.CreatedAt),
			"node_count": int64(len(concepts)),
			"edge_count": int64(len(relates)),
		}); err != nil {
			return err
		}
		for _, c := range concepts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := d.exec(`
				CREATE (:Concept {key: $key, graph_id: $graph_id, id: $id, label: $label, seq: $seq, payload: $payload})
			`, map[string]any{
				"key":      c.Key,
				"graph_id": g.ID,
				"id":       c.ID,
				"label":    c.Label,
				"seq":      c.Seq,
				"payload":  c.Payload,
			}); err != nil {
				return err
			}
		}
		for _, r := range relates {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := d.exec(`
				MATCH (s:Concept {key: $source}), (t:Concept {key: $target})
				CREATE (s)-[:RELATES {graph_id: $graph_id, id: $id, type: $type, seq: $seq, payload: $payload}]->(t)
			`, map[string]any{
				"source":   r.SourceKey,
				"target":   r.TargetKey,
				"graph_id": g.ID,
				"id":       r.ID,
				"type":     r.Type,
				"seq":      r.Seq,
				"payload":  r.Payload,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save graph %s: %w", g.ID, err)
	}
	return nil
}

// LoadGraph implements GraphDriver.
func (d *LadybugDriver) LoadGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	if err := ValidateGraphID(graphID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	params := map[string]any{"graph_id": graphID}
	headers, err := d.strings(selectHeaderQuery, params, "header")
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", graphID, err)
	}
	if len(headers) == 0 {
		return nil, notFound(graphID)
	}
	nodes, err := d.strings(selectConceptsQuery, params, "payload")
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s nodes: %w", graphID, err)
	}
	edges, err := d.strings(selectRelatesQuery, params, "payload")
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s edges: %w", graphID, err)
	}
	return assembleGraph(headers[0], nodes, edges)
}

func (d *LadybugDriver) strings(query string, params map[string]any, column string) ([]string, error) {
	rows, err := d.exec(query, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		s, err := MustString(row[column], column)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteGraph implements GraphDriver.
func (d *LadybugDriver) DeleteGraph(ctx context.Context, graphID string) error {
	if err := ValidateGraphID(graphID); err != nil {
		return err
	}
	return d.inTransaction(func() error {
		params := map[string]any{"graph_id": graphID}
		if _, err := d.exec(deleteConceptsQuery, params); err != nil {
			return err
		}
		_, err := d.exec(deleteHeaderQuery, params)
		return err
	})
}

// ListGraphs implements GraphDriver.
func (d *LadybugDriver) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	d.mu.Lock()
	rows, err := d.exec(listHeadersQuery, nil)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	out := make([]types.GraphSummary, 0, len(rows))
	for _, row := range rows {
		header, err := MustString(row["header"], "header")
		if err != nil {
			return nil, err
		}
		nodes, _ := AsInt64(row["node_count"])
		edges, _ := AsInt64(row["edge_count"])
		summary, err := summaryFromHeader(header, nodes, edges)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	sortSummaries(out)
	return out, nil
}

// Provider implements GraphDriver.
func (d *LadybugDriver) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close releases the connection and database so the file lock is dropped.
func (d *LadybugDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.conn != nil {
		d.conn.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
	return nil
}

