package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBFName(t *testing.T) {
	assert.Equal(t, "POOL_ID", dbfName("Pool.ID"))
	assert.Equal(t, "MEAN_DEPTH", dbfName("Mean.Depth"))
	// DBF field names cap at 10 characters.
	assert.Equal(t, "HYDRAULIC_", dbfName("Hydraulic.Head"))
}

func TestLoadCandidatesShapefile_FileMissing(t *testing.T) {
	_, err := LoadCandidatesShapefile(filepath.Join(t.TempDir(), "nope.shp"), DefaultSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open candidate shapefile")
}
