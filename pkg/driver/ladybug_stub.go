//go:build !cgo

package driver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// ErrCGORequired is returned when Ladybug operations are called without CGO support
var ErrCGORequired = errors.New("ladybug driver requires CGO; build with CGO_ENABLED=1")

// LadybugDriver is a stub implementation when CGO is disabled.
// All methods return ErrCGORequired.
type LadybugDriver struct{}

var _ GraphDriver = (*LadybugDriver)(nil)

// NewLadybugDriver returns an error when CGO is disabled
func NewLadybugDriver(path string, logger *slog.Logger) (*LadybugDriver, error) {
	return nil, ErrCGORequired
}

// SaveGraph returns ErrCGORequired
func (d *LadybugDriver) SaveGraph(ctx context.Context, g *types.Graph) error {
	return ErrCGORequired
}

// LoadGraph returns ErrCGORequired
func (d *LadybugDriver) LoadGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	return nil, ErrCGORequired
}

// DeleteGraph returns ErrCGORequired
func (d *LadybugDriver) DeleteGraph(ctx context.Context, graphID string) error {
	return ErrCGORequired
}

// ListGraphs returns ErrCGORequired
func (d *LadybugDriver) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	return nil, ErrCGORequired
}

// Provider returns GraphProviderLadybug
func (d *LadybugDriver) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close returns nil
func (d *LadybugDriver) Close() error {
	return nil
}
