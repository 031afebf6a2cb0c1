package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, DefaultSchema().Validate())
}

func TestSchemaValidate_EmptyColumn(t *testing.T) {
	s := DefaultSchema()
	s.Depth = "  "
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column depth is empty")
}

func TestSchemaValidate_WrongHaulCount(t *testing.T) {
	s := DefaultSchema()
	s.Hauls = []string{"Haul.1", "Haul.2"}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 3 haul columns")
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "  ", "NA", "na", "NaN", "NULL", "null"} {
		assert.True(t, isMissing(v), "%q should be missing", v)
	}
	for _, v := range []string{"0", "1", "0.5", "-1"} {
		assert.False(t, isMissing(v), "%q should not be missing", v)
	}
}

func TestHeaderIndex_TrimsNames(t *testing.T) {
	idx := headerIndex([]string{" Pool.ID ", "Mean.Depth"})
	assert.Equal(t, 0, idx["Pool.ID"])
	assert.Equal(t, 1, idx["Mean.Depth"])
}
