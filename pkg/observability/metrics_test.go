package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/domain"
)

func TestMetrics_StepLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	start := time.Now()
	hooks.OnStepStart(ctx, &domain.StepEvent{
		Timestamp: start, RunID: "r1", StepID: "pack-gas",
		Kind: domain.KindToolInvocation, Status: domain.StatusRunning, Attempt: 1,
	})
	hooks.OnStepEnd(ctx, &domain.StepEvent{
		Timestamp: start.Add(2 * time.Second), RunID: "r1", StepID: "pack-gas",
		Kind: domain.KindToolInvocation, Status: domain.StatusSucceeded, Attempt: 1,
	})

	value := testutil.ToFloat64(m.StepsTotal.WithLabelValues(domain.KindToolInvocation, "succeeded"))
	assert.Equal(t, 1.0, value)

	count := testutil.CollectAndCount(m.StepDuration)
	assert.Equal(t, 1, count, "one duration series should be recorded")
}

func TestMetrics_ToolAndRunCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnToolReturn(ctx, &domain.ToolEvent{Adapter: "packmol", Elapsed: time.Second})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{Adapter: "packmol", Elapsed: time.Second, IsError: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("packmol", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("packmol", "error")))

	m.ObserveRun(&domain.WorkflowReport{Success: true})
	m.ObserveRun(&domain.WorkflowReport{Success: false})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
}

func TestMetrics_RegistersCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	// Counters with no observations gather empty; registration itself must
	// not conflict.
	assert.NotNil(t, families)
}
