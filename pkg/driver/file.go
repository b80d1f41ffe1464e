package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// FileDriver stores each graph as graph_<id>.json in a directory.
type FileDriver struct {
	dir string
	mu  sync.RWMutex
}

var _ GraphDriver = (*FileDriver)(nil)

// NewFileDriver creates the directory if needed.
// If dir is empty, uses os.TempDir()/mindgraph-graphs
func NewFileDriver(dir string) (*FileDriver, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mindgraph-graphs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}
	return &FileDriver{dir: dir}, nil
}

// Dir returns the storage directory.
func (d *FileDriver) Dir() string {
	return d.dir
}

// isPathWithinDirectory checks that the resolved path is within the expected directory.
func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir)
}

// pathFor returns the file holding graphID.
func (d *FileDriver) pathFor(graphID string) (string, error) {
	if err := ValidateGraphID(graphID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(d.dir, fmt.Sprintf("graph_%s.json", graphID))
	if !isPathWithinDirectory(fullPath, d.dir) {
		return "", fmt.Errorf("%w: invalid graph id %q", types.ErrInvalidInput, graphID)
	}
	return fullPath, nil
}

// SaveGraph writes to a temporary file first, then renames it over the old copy.
func (d *FileDriver) SaveGraph(ctx context.Context, g *types.Graph) error {
	path, err := d.pathFor(g.ID)
	if err != nil {
		return err
	}
	data, err := encodeGraph(g)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename graph file: %w", err)
	}
	return nil
}

// LoadGraph implements GraphDriver.
func (d *FileDriver) LoadGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	path, err := d.pathFor(graphID)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	data, err := os.ReadFile(path)
	d.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(graphID)
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return decodeGraph(data)
}

// DeleteGraph implements GraphDriver.
func (d *FileDriver) DeleteGraph(ctx context.Context, graphID string) error {
	path, err := d.pathFor(graphID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete graph file: %w", err)
	}
	return nil
}

// ListGraphs reads every graph file. Unreadable files are skipped.
func (d *FileDriver) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph directory: %w", err)
	}

	out := []types.GraphSummary{}
	for _, entry := range entries {
		name := entry.Name()
		// Only process graph_*.json files, skip .tmp files
		if entry.IsDir() || !strings.HasPrefix(name, "graph_") || filepath.Ext(name) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(d.dir, name))
		if err != nil {
			continue
		}
		g, err := decodeGraph(data)
		if err != nil {
			continue
		}
		out = append(out, summarize(g))
	}
	sortSummaries(out)
	return out, nil
}

// Provider implements GraphDriver.
func (d *FileDriver) Provider() GraphProvider {
	return GraphProviderFile
}

// Close implements GraphDriver.
func (d *FileDriver) Close() error {
	return nil
}
