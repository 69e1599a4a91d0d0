package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/domain"
)

func groupIDs(group []domain.WorkflowStep) []string {
	ids := make([]string, 0, len(group))
	for _, step := range group {
		ids = append(ids, step.ID)
	}
	return ids
}

func TestConflictGroups(t *testing.T) {
	t.Run("reader and writer of one artifact share a group", func(t *testing.T) {
		groups := conflictGroups([]domain.WorkflowStep{
			{ID: "write", Outputs: []string{"x"}},
			{ID: "read", Inputs: []string{"x"}},
			{ID: "other", Outputs: []string{"y"}},
		})
		require.Len(t, groups, 2)

		var shared, alone []string
		for _, g := range groups {
			if len(g) == 2 {
				shared = groupIDs(g)
			} else {
				alone = groupIDs(g)
			}
		}
		assert.ElementsMatch(t, []string{"write", "read"}, shared)
		assert.Equal(t, []string{"other"}, alone)
	})

	t.Run("two writers of one artifact share a group", func(t *testing.T) {
		groups := conflictGroups([]domain.WorkflowStep{
			{ID: "a", Outputs: []string{"x"}},
			{ID: "b", Outputs: []string{"x"}},
		})
		require.Len(t, groups, 1)
		assert.ElementsMatch(t, []string{"a", "b"}, groupIDs(groups[0]))
	})

	t.Run("disjoint steps stay in separate groups", func(t *testing.T) {
		groups := conflictGroups([]domain.WorkflowStep{
			{ID: "a", Outputs: []string{"x"}},
			{ID: "b", Outputs: []string{"y"}},
			{ID: "c", Inputs: []string{"z"}},
		})
		assert.Len(t, groups, 3)
	})

	t.Run("a bridging step merges groups", func(t *testing.T) {
		groups := conflictGroups([]domain.WorkflowStep{
			{ID: "a", Outputs: []string{"x"}},
			{ID: "b", Outputs: []string{"y"}},
			{ID: "bridge", Inputs: []string{"x", "y"}},
		})
		require.Len(t, groups, 1)
		assert.ElementsMatch(t, []string{"a", "b", "bridge"}, groupIDs(groups[0]))
	})

	t.Run("steps without artifacts stay independent", func(t *testing.T) {
		groups := conflictGroups([]domain.WorkflowStep{
			{ID: "a"},
			{ID: "b"},
		})
		assert.Len(t, groups, 2)
	})
}
