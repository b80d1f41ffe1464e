package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/mindgraph/pkg/types"
)

const badgerGraphPrefix = "graph:"

// BadgerOptions configures a BadgerDriver.
type BadgerOptions struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	Logger   *slog.Logger
}

// BadgerDriver stores graph snapshots as JSON values keyed by graph id.
type BadgerDriver struct {
	db *badger.DB
}

var _ GraphDriver = (*BadgerDriver)(nil)

// NewBadgerDriver opens or creates a Badger database.
func NewBadgerDriver(opts BadgerOptions) (*BadgerDriver, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, fmt.Errorf("%w: badger storage requires a directory", types.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger.With("component", "badger")})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerDriver{db: db}, nil
}

func badgerKey(graphID string) []byte {
	return []byte(badgerGraphPrefix + graphID)
}

// SaveGraph implements GraphDriver.
func (d *BadgerDriver) SaveGraph(ctx context.Context, g *types.Graph) error {
	if err := ValidateGraphID(g.ID); err != nil {
		return err
	}
	data, err := encodeGraph(g)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(g.ID), data)
	})
}

// LoadGraph implements GraphDriver.
func (d *BadgerDriver) LoadGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	if err := ValidateGraphID(graphID); err != nil {
		return nil, err
	}
	var data []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(graphID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(graphID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", graphID, err)
	}
	return decodeGraph(data)
}

// DeleteGraph implements GraphDriver.
func (d *BadgerDriver) DeleteGraph(ctx context.Context, graphID string) error {
	if err := ValidateGraphID(graphID); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(graphID))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// ListGraphs implements GraphDriver.
func (d *BadgerDriver) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	out := []types.GraphSummary{}
	prefix := []byte(badgerGraphPrefix)
	err := d.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			g, err := decodeGraph(data)
			if err != nil {
				continue
			}
			out = append(out, summarize(g))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSummaries(out)
	return out, nil
}

// Provider implements GraphDriver.
func (d *BadgerDriver) Provider() GraphProvider {
	return GraphProviderBadger
}

// Close implements GraphDriver.
func (d *BadgerDriver) Close() error {
	return d.db.Close()
}

// badgerLogger routes badger's warnings and errors to slog and drops the rest.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
