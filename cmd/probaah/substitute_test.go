package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutionRequest(t *testing.T) {
	t.Run("positional file", func(t *testing.T) {
		cmd := newSubstituteCmd()
		require.NoError(t, cmd.Flags().Set("remove", "H2O"))
		require.NoError(t, cmd.Flags().Set("add", "O2"))
		require.NoError(t, cmd.Flags().Set("count", "50"))
		require.NoError(t, cmd.Flags().Set("density", "0.0005"))

		req, err := substitutionRequest(cmd, []string{"slab.pdb"})
		require.NoError(t, err)
		assert.Equal(t, "slab.pdb", req.InputPath)
		assert.Equal(t, "H2O", req.Remove)
		assert.Equal(t, "O2", req.Gas)
		assert.Equal(t, 50, req.Count)
		assert.InDelta(t, 0.0005, req.Density, 1e-12)
	})

	t.Run("input flag fallback", func(t *testing.T) {
		cmd := newSubstituteCmd()
		require.NoError(t, cmd.Flags().Set("input", "slab.xyz"))
		require.NoError(t, cmd.Flags().Set("remove", "H2O"))
		require.NoError(t, cmd.Flags().Set("add", "N2"))

		req, err := substitutionRequest(cmd, nil)
		require.NoError(t, err)
		assert.Equal(t, "slab.xyz", req.InputPath)
	})

	t.Run("gas alias", func(t *testing.T) {
		cmd := newSubstituteCmd()
		require.NoError(t, cmd.Flags().Set("remove", "H2O"))
		require.NoError(t, cmd.Flags().Set("gas", "CO2"))

		req, err := substitutionRequest(cmd, []string{"slab.pdb"})
		require.NoError(t, err)
		assert.Equal(t, "CO2", req.Gas)
	})

	t.Run("missing file", func(t *testing.T) {
		cmd := newSubstituteCmd()
		require.NoError(t, cmd.Flags().Set("remove", "H2O"))
		require.NoError(t, cmd.Flags().Set("add", "O2"))

		_, err := substitutionRequest(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "structure file")
	})

	t.Run("missing gas", func(t *testing.T) {
		cmd := newSubstituteCmd()
		require.NoError(t, cmd.Flags().Set("remove", "H2O"))

		_, err := substitutionRequest(cmd, []string{"slab.pdb"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "add")
	})
}
