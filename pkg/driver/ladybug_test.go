//go:build cgo

package driver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadybugDriver(t *testing.T) {
	d, err := NewLadybugDriver(filepath.Join(t.TempDir(), "graphs.db"), nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, GraphProviderLadybug, d.Provider())
	exerciseDriver(t, d)
}
