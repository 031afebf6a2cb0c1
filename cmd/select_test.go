package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "x"}
	c.Flags().Int("sample-size", 0, "")
	c.Flags().Int64("seed", 0, "")
	return c
}

func TestIntFlag_Unset(t *testing.T) {
	c := flagTestCmd(t)
	require.NoError(t, c.Flags().Parse(nil))

	assert.Equal(t, 100, intFlag(c, "sample-size", 100))
	assert.Equal(t, int64(42), int64Flag(c, "seed", 42))
}

func TestIntFlag_ExplicitZero(t *testing.T) {
	c := flagTestCmd(t)
	require.NoError(t, c.Flags().Parse([]string{"--sample-size", "0", "--seed", "0"}))

	// An explicit zero is a real value, not "use the config default".
	assert.Equal(t, 0, intFlag(c, "sample-size", 100))
	assert.Equal(t, int64(0), int64Flag(c, "seed", 42))
}

func TestIntFlag_ExplicitValue(t *testing.T) {
	c := flagTestCmd(t)
	require.NoError(t, c.Flags().Parse([]string{"--sample-size", "25", "--seed", "1747"}))

	assert.Equal(t, 25, intFlag(c, "sample-size", 100))
	assert.Equal(t, int64(1747), int64Flag(c, "seed", 42))
}
